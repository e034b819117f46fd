package store

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestPartialBulkResultCountsDuplicates(t *testing.T) {
	err := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 1, Code: duplicateKeyCode}},
			{WriteError: mongo.WriteError{Index: 4, Code: duplicateKeyCode}},
			{WriteError: mongo.WriteError{Index: 7, Code: duplicateKeyCode}},
		},
	}
	res, ok := partialBulkResult(10, err)
	if !ok {
		t.Fatal("expected bulk exception to be classified")
	}
	if res.Written != 7 || res.Duplicates != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPartialBulkResultSeparatesRealFailures(t *testing.T) {
	err := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 0, Code: duplicateKeyCode}},
			{WriteError: mongo.WriteError{Index: 2, Code: 121, Message: "validation failed"}},
		},
	}
	res, ok := partialBulkResult(5, err)
	if !ok {
		t.Fatal("expected bulk exception to be classified")
	}
	if res.Written != 3 || res.Duplicates != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPartialBulkResultRejectsNonBulkErrors(t *testing.T) {
	if _, ok := partialBulkResult(5, errors.New("connection reset")); ok {
		t.Fatal("connectivity errors must trigger the per-item fallback")
	}
}

func TestBulkResultAdd(t *testing.T) {
	got := BulkResult{Written: 2, Duplicates: 1}.add(BulkResult{Written: 1, Failed: 3})
	if got.Written != 3 || got.Duplicates != 1 || got.Failed != 3 {
		t.Fatalf("unexpected sum: %+v", got)
	}
}
