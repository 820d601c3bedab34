package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/typesvc"
)

// newPair builds a two-member record (spec.md §4.3 "pair"): std::pair's
// First/Second map onto a struct with those two exported field names, the
// same record machinery every class field uses.
func newPair(name, typeName string, first, second Field) Field {
	goType := reflect.StructOf([]reflect.StructField{
		{Name: "First", Type: first.GoType()},
		{Name: "Second", Type: second.GoType()},
	})
	info := typesvc.Info{
		Kind: typesvc.KindRecord,
		Members: []typesvc.Member{
			{Name: "First", TypeName: first.TypeName(), Offset: goType.Field(0).Offset},
			{Name: "Second", TypeName: second.TypeName(), Offset: goType.Field(1).Offset},
		},
		DefaultConstructible: true,
	}
	return newRecord(name, typeName, goType, info, nil, []Field{first, second}, []int{0, 1})
}
