package main

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/pkg/ntuple"
	"github.com/fieldstore/ntuple/typesvc"
)

type sample struct {
	X int32
}

func writeSidecar(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "events.ntuple")
	sidecar := filepath.Join(dir, "events.ntuple.schema")

	svc := typesvc.NewReflective()
	svc.Register("sample", sample{})
	root, err := field.Create("", "sample", svc)
	if err != nil {
		t.Fatalf("field.Create: %v", err)
	}

	w, err := ntuple.CreateFile(path, root, ntuple.DefaultWriteOptions())
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	v := reflect.New(root.GoType()).Elem()
	v.FieldByName("X").SetInt(7)
	if _, err := w.Append(v.Interface()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.CommitCluster(); err != nil {
		t.Fatalf("CommitCluster: %v", err)
	}
	if err := ntuple.SaveDescriptor(sidecar, w); err != nil {
		t.Fatalf("SaveDescriptor: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return sidecar
}

func TestRunSchema(t *testing.T) {
	sidecar := writeSidecar(t)
	if err := runSchema([]string{sidecar}); err != nil {
		t.Fatalf("runSchema: %v", err)
	}
}

func TestRunSchemaMissingFile(t *testing.T) {
	if err := runSchema([]string{"/nonexistent/path.schema"}); err == nil {
		t.Fatal("expected error for missing sidecar")
	}
}

func TestSchemaCommandWired(t *testing.T) {
	var out bytes.Buffer
	cmd := newSchemaCmd()
	cmd.SetOut(&out)
	if cmd.Use != "schema <sidecar>" {
		t.Fatalf("unexpected Use: %q", cmd.Use)
	}
}
