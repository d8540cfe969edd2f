package graph

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/graphql-go/graphql"
)

// guard is the single error boundary around every root field. Typed errors
// pass through; anything else is logged with detail and replaced by an
// opaque InternalError.
func (r *Resolver) guard(field string, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (res interface{}, err error) {
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				res = nil
				err = fmt.Errorf("panic in resolver: %v\n%s", rec, debug.Stack())
			}

			if err != nil {
				public := asPublic(err)

				if public == nil {
					r.log.ErrorContext(contextOf(p), "resolver failed", "field", field, "err", err)
					public = &InternalError{}
				}

				res, err = nil, public
			}

			if r.prom != nil {
				r.prom.ObserveResolver(field, outcomeOf(err), time.Since(start))
			}
		}()

		return fn(p)
	}
}

func (r *Resolver) guardAll(fields graphql.Fields) graphql.Fields {
	for name, f := range fields {
		f.Resolve = r.guard(name, f.Resolve)
	}
	return fields
}
