package field

import (
	"fmt"
	"reflect"

	"github.com/fieldstore/ntuple/typesvc"
)

// newTuple builds an N-member record (spec.md §4.3 "tuple"): members are
// named Item0..ItemN-1, in declaration order.
func newTuple(name, typeName string, items []Field) Field {
	structFields := make([]reflect.StructField, len(items))
	members := make([]typesvc.Member, len(items))
	fieldIndex := make([]int, len(items))
	for i, it := range items {
		fname := fmt.Sprintf("Item%d", i)
		structFields[i] = reflect.StructField{Name: fname, Type: it.GoType()}
		fieldIndex[i] = i
		members[i] = typesvc.Member{Name: fname, TypeName: it.TypeName()}
	}
	goType := reflect.StructOf(structFields)
	for i := range members {
		members[i].Offset = goType.Field(i).Offset
	}
	info := typesvc.Info{Kind: typesvc.KindRecord, Members: members, DefaultConstructible: true}
	return newRecord(name, typeName, goType, info, nil, items, fieldIndex)
}
