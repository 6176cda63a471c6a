package observability

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoggerFields(t *testing.T) {
	logger := NewLogger("api")
	hook := test.NewLocal(logger.(*entryLogger).entry.Logger)

	child := logger.WithField("request_id", "abc")
	child.Info("hello")
	logger.Info("plain")

	if len(hook.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hook.Entries))
	}
	first := hook.Entries[0]
	if first.Data["service"] != "api" || first.Data["request_id"] != "abc" {
		t.Errorf("unexpected fields on child entry: %v", first.Data)
	}
	// The parent is untouched by the child's field.
	if _, ok := hook.Entries[1].Data["request_id"]; ok {
		t.Error("parent logger inherited the child's field")
	}
	if hook.Entries[1].Data["service"] != "api" {
		t.Errorf("missing service tag: %v", hook.Entries[1].Data)
	}
}
