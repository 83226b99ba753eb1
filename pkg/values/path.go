package values

import (
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"
)

var (
	paths   = make(map[string]*jmespath.JMESPath)
	pathsMu sync.RWMutex
)

// Path resolves a JMESPath expression against a snapshot of the source,
// e.g. "order.items[0].sku".
func Path(expression string) (Value, error) {
	compiled, err := compilePath(expression)
	if err != nil {
		return Value{}, fmt.Errorf("invalid path %q: %w", expression, err)
	}

	return Value{
		kind: KindPath,
		key:  expression,
		fn: func(src Source) (any, error) {
			result, err := compiled.Search(snapshot(src))
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate path %q: %w", expression, err)
			}
			return result, nil
		},
	}, nil
}

func MustPath(expression string) Value {
	v, err := Path(expression)
	if err != nil {
		panic(err)
	}
	return v
}

func compilePath(expression string) (*jmespath.JMESPath, error) {
	pathsMu.RLock()
	if compiled, ok := paths[expression]; ok {
		pathsMu.RUnlock()
		return compiled, nil
	}
	pathsMu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	pathsMu.Lock()
	paths[expression] = compiled
	pathsMu.Unlock()

	return compiled, nil
}
