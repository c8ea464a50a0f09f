package cache

import "github.com/gogpu/gpustate/backend"

// queries holds immutable backend metadata, fetched at most once.
type queries struct {
	author                answer[string]
	name                  answer[string]
	version               answer[string]
	shadingLangVersion    answer[string]
	info                  answer[backend.Info]
	maxTextureUnits       answer[backend.Unit]
	maxUniformBufferUnits answer[backend.Unit]
}

type answer[T any] struct {
	value T
	ok    bool
}

// Query selects one backend metadata field.
type Query[T any] struct {
	name  string
	field func(*queries) *answer[T]
}

func (q Query[T]) String() string { return q.name }

// Backend metadata queries.
var (
	Author                = Query[string]{"author", func(q *queries) *answer[string] { return &q.author }}
	Name                  = Query[string]{"name", func(q *queries) *answer[string] { return &q.name }}
	Version               = Query[string]{"version", func(q *queries) *answer[string] { return &q.version }}
	ShadingLangVersion    = Query[string]{"shading language version", func(q *queries) *answer[string] { return &q.shadingLangVersion }}
	Info                  = Query[backend.Info]{"info", func(q *queries) *answer[backend.Info] { return &q.info }}
	MaxTextureUnits       = Query[backend.Unit]{"max texture units", func(q *queries) *answer[backend.Unit] { return &q.maxTextureUnits }}
	MaxUniformBufferUnits = Query[backend.Unit]{"max uniform buffer units", func(q *queries) *answer[backend.Unit] { return &q.maxUniformBufferUnits }}
)

// Fetch returns the stored answer to q, calling fetch the first time.
// A failed fetch is not stored, so the next call asks the backend again.
func Fetch[T any](c *Cache, q Query[T], fetch func() (T, error)) (T, error) {
	var value T
	err := c.do(func() error {
		a := q.field(&c.queries)
		if !a.ok {
			v, err := fetch()
			if err != nil {
				return err
			}
			a.value, a.ok = v, true
		}
		value = a.value
		return nil
	})
	return value, err
}
