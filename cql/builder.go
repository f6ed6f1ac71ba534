package cql

// StatementBuilder defers statement construction: it owns a base statement
// shape plus ordered binding steps applied with a concrete TermFactory when
// the statement is finally built. Post-build transforms fold in options;
// on-build hooks run last (e.g. paging-state attach).
//
// A builder is consumed by Build: folding happens exactly once and further
// Build calls fail, so a built statement can never be mutated afterwards.
type StatementBuilder[S Statement] struct {
	stmt       S
	factory    TermFactory
	binds      []func(S, TermFactory) error
	transforms []func(S)
	hooks      []func(S)
	consumed   bool
}

func newBuilder[S Statement](stmt S, factory TermFactory) *StatementBuilder[S] {
	return &StatementBuilder[S]{stmt: stmt, factory: factory}
}

// bind queues a binding step translating raw values into terms via the
// TermFactory supplied at build time.
func (b *StatementBuilder[S]) bind(fn func(S, TermFactory) error) *StatementBuilder[S] {
	b.binds = append(b.binds, fn)
	return b
}

// Apply queues a post-build transform; the statement factory uses it to fold
// in statement options, callers may add their own.
func (b *StatementBuilder[S]) Apply(fn func(S)) *StatementBuilder[S] {
	b.transforms = append(b.transforms, fn)
	return b
}

// OnBuild queues a hook running after all transforms.
func (b *StatementBuilder[S]) OnBuild(fn func(S)) *StatementBuilder[S] {
	b.hooks = append(b.hooks, fn)
	return b
}

// TermFactory exposes the binding mode the builder was created with.
func (b *StatementBuilder[S]) TermFactory() TermFactory {
	return b.factory
}

// Build folds bindings, transforms and hooks in order and returns the final
// statement. The builder is consumed: subsequent calls return
// ErrBuilderConsumed.
func (b *StatementBuilder[S]) Build() (S, error) {
	var zero S
	if b.consumed {
		return zero, ErrBuilderConsumed
	}
	b.consumed = true

	for _, fn := range b.binds {
		if err := fn(b.stmt, b.factory); err != nil {
			return zero, err
		}
	}
	for _, fn := range b.transforms {
		fn(b.stmt)
	}
	for _, fn := range b.hooks {
		fn(b.stmt)
	}
	return b.stmt, nil
}
