// Package all wires the built-in warehouse backends into the storage
// factory. Import it for side effects:
//
//	import _ "i94etl/internal/storage/all"
//
// after which storage.New and storage.NewWarehouse accept the kinds
// "postgres" and "sqlite".
package all

import (
	_ "i94etl/internal/storage/postgres"
	_ "i94etl/internal/storage/sqlite"
)
