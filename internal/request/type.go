package request

// Type enumerates the command kinds the gateway dispatches. The set is
// closed: dispatch switches over it exhaustively and unknown command
// names resolve to TypeUnknown.
type Type int

const (
	TypeUnknown Type = iota
	TypeDelete
	TypeInsert
	TypeUpdate
	TypeFind
	TypeFindAndModify
	TypeAggregate
	TypeListCollections
	TypeListDatabases
	TypeDistinct
	TypeCount
	TypeValidate
	TypeCurrentOp
	TypeCompact
	TypeCollStats
	TypeDbStats
	TypeGetParameter
	TypeKillOp
)

var typeNames = map[Type]string{
	TypeUnknown:         "unknown",
	TypeDelete:          "delete",
	TypeInsert:          "insert",
	TypeUpdate:          "update",
	TypeFind:            "find",
	TypeFindAndModify:   "findAndModify",
	TypeAggregate:       "aggregate",
	TypeListCollections: "listCollections",
	TypeListDatabases:   "listDatabases",
	TypeDistinct:        "distinct",
	TypeCount:           "count",
	TypeValidate:        "validate",
	TypeCurrentOp:       "currentOp",
	TypeCompact:         "compact",
	TypeCollStats:       "collStats",
	TypeDbStats:         "dbStats",
	TypeGetParameter:    "getParameter",
	TypeKillOp:          "killOp",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		if t != TypeUnknown {
			m[name] = t
		}
	}
	return m
}()

// TypeFromCommand resolves a command name to its Type, or TypeUnknown
// for command names the gateway does not dispatch.
func TypeFromCommand(name string) Type {
	return typesByName[name]
}

// String returns the wire-level command name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}
