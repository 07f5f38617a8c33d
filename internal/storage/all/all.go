// Package all registers every destination backend with the storage factory.
// Commands blank-import it; the config selects which kind to use at runtime.
package all

import (
	_ "sheetsync/internal/storage/mssql"
	_ "sheetsync/internal/storage/postgres"
	_ "sheetsync/internal/storage/sqlite"
	_ "sheetsync/internal/storage/supabase"
)
