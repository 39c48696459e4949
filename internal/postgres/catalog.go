package postgres

// QueryCatalog maps each command family to the documentdb_api call text
// it executes. Kept as data so alternate API schemas can swap the catalog
// without touching the client.
type QueryCatalog struct {
	Delete          string
	Insert          string
	Update          string
	Find            string
	Aggregate       string
	ListCollections string
	ListDatabases   string
	FindAndModify   string
	Distinct        string
	Count           string
	Validate        string
	CurrentOp       string
	Compact         string
	CollStats       string
	DbStats         string
	GetParameter    string
	KillOp          string
}

// NewQueryCatalog returns the default documentdb_api catalog.
func NewQueryCatalog() QueryCatalog {
	return QueryCatalog{
		Delete:          "SELECT document FROM documentdb_api.delete($1, $2::bytea)",
		Insert:          "SELECT document FROM documentdb_api.insert($1, $2::bytea)",
		Update:          "SELECT document FROM documentdb_api.update($1, $2::bytea)",
		Find:            "SELECT document FROM documentdb_api.find_cursor_first_page($1, $2::bytea)",
		Aggregate:       "SELECT document FROM documentdb_api.aggregate_cursor_first_page($1, $2::bytea)",
		ListCollections: "SELECT document FROM documentdb_api.list_collections_cursor_first_page($1, $2::bytea)",
		ListDatabases:   "SELECT documentdb_api.list_databases($1::bytea)",
		FindAndModify:   "SELECT document FROM documentdb_api.find_and_modify($1, $2::bytea)",
		Distinct:        "SELECT document FROM documentdb_api.distinct_query($1, $2::bytea)",
		Count:           "SELECT document FROM documentdb_api.count_query($1, $2::bytea)",
		Validate:        "SELECT documentdb_api.validate($1, $2::bytea)",
		CurrentOp:       "SELECT documentdb_api.current_op($1::bytea)",
		Compact:         "SELECT documentdb_api.compact($1::bytea)",
		CollStats:       "SELECT documentdb_api.coll_stats($1, $2, $3::float8)",
		DbStats:         "SELECT documentdb_api.db_stats($1, $2::float8)",
		GetParameter:    "SELECT documentdb_api.get_parameter($1::bool, $2::bool, $3::text[])",
		KillOp:          "SELECT documentdb_api.kill_op($1)",
	}
}
