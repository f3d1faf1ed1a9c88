package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// ValidationError reports a document that does not satisfy its CUE
// definition.
type ValidationError struct {
	Definition string
	Err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match %s: %v", e.Definition, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// schema holds the compiled definitions. cue.Context is not safe for
// concurrent use, so every evaluation happens under mu.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	val  cue.Value
	err  error
}

func loadSchema() {
	schema.ctx = cuecontext.New()
	schema.val = schema.ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.val.Err(); err != nil {
		schema.err = fmt.Errorf("failed to compile fixture schema: %w", err)
	}
}

// Validate checks a fixture document against the CUE definition for its type.
// Documents of unknown types are rejected.
func Validate(doc any) error {
	def, err := definitionFor(doc)
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", def, err)
	}

	schema.once.Do(loadSchema)
	if schema.err != nil {
		return schema.err
	}

	schema.mu.Lock()
	defer schema.mu.Unlock()

	v := schema.ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to load %s document: %w", def, err)
	}

	unified := schema.val.LookupPath(cue.ParsePath(def)).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Definition: def, Err: err}
	}
	return nil
}

func definitionFor(doc any) (string, error) {
	switch doc.(type) {
	case BizEvent, *BizEvent:
		return "#BizEvent", nil
	case Receipt, *Receipt:
		return "#Receipt", nil
	case CartReceipt, *CartReceipt:
		return "#CartReceipt", nil
	case ReceiptError, *ReceiptError:
		return "#ReceiptError", nil
	case CartReceiptError, *CartReceiptError:
		return "#CartReceiptError", nil
	case IOMessage, *IOMessage:
		return "#IOMessage", nil
	case CartIOMessage, *CartIOMessage:
		return "#CartIOMessage", nil
	default:
		return "", fmt.Errorf("no fixture definition for %T", doc)
	}
}
