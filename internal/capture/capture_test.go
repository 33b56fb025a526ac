package capture

import (
	"reflect"
	"testing"

	"github.com/strqllang/strql/internal/grammar"
	"github.com/strqllang/strql/internal/matcher"
	"github.com/strqllang/strql/internal/parser"
)

func run(t *testing.T, src, input string) map[string]any {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	g, err := grammar.Resolve(prog)
	if err != nil {
		t.Fatalf("grammar.Resolve() error = %v", err)
	}
	d, err := matcher.Run(g, input)
	if err != nil {
		t.Fatalf("matcher.Run() error = %v", err)
	}
	doc, err := Project(g, d, input)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	return doc
}

func TestProjectArrayCapture(t *testing.T) {
	doc := run(t, `TEXT = w GREEDY SPLITBY "."; w = ANY -> ADD TO ROOT.results[]`, "a. b. c")
	want := map[string]any{"results": []any{"a", " b", " c"}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("got %#v, want %#v", doc, want)
	}
}

func TestProjectLazySplitSingleCapture(t *testing.T) {
	doc := run(t, `TEXT = w LAZY SPLITBY "."; w = ANY -> ADD TO ROOT.results[]`, "a. b. c")
	want := map[string]any{"results": []any{"a. b. c"}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("got %#v, want %#v", doc, want)
	}
}

func TestProjectFieldCapture(t *testing.T) {
	doc := run(t, `TEXT = x; x = "hello" -> ADD TO ROOT.greeting`, "hello")
	want := map[string]any{"greeting": "hello"}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("got %#v, want %#v", doc, want)
	}
}

func TestProjectFieldReassignmentConflict(t *testing.T) {
	_, err := func() (map[string]any, error) {
		prog, err := parser.Parse(`TEXT = x x; x = "a" -> ADD TO ROOT.v`)
		if err != nil {
			return nil, err
		}
		g, err := grammar.Resolve(prog)
		if err != nil {
			return nil, err
		}
		d, err := matcher.Run(g, "aa")
		if err != nil {
			return nil, err
		}
		return Project(g, d, "aa")
	}()
	if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("got %v, want *ConflictError", err)
	}
}

func TestProjectObjectAliasNestedFields(t *testing.T) {
	doc := run(t,
		`TEXT = item -> ADD item{} TO ROOT.entry`+"\n"+
			`item = name " " age`+"\n"+
			`name = WORD -> ADD TO item.name`+"\n"+
			`age = DIGIT -> ADD TO item.age`,
		"bob 9")
	want := map[string]any{"entry": map[string]any{"name": "bob", "age": "9"}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("got %#v, want %#v", doc, want)
	}
}

func TestProjectNamedKeySegment(t *testing.T) {
	doc := run(t,
		`TEXT = k "=" v -> ADD v TO ROOT.attrs[k]`+"\n"+
			`k = WORD -> ADD TO ROOT.key`+"\n"+
			`v = WORD`,
		"a=b")
	want := map[string]any{
		"key":   "a",
		"attrs": map[string]any{"a": "b"},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("got %#v, want %#v", doc, want)
	}
}
