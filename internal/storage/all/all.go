// Package all registers every store backend with the storage factory.
// Commands blank-import it so config alone selects the backend.
package all

import (
	_ "dsmetl/internal/storage/memory"
	_ "dsmetl/internal/storage/mssql"
	_ "dsmetl/internal/storage/postgres"
	_ "dsmetl/internal/storage/sqlite"
)
