package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spiffe/go-spiffe/v2/spiffeid"

	"github.com/roach88/certledger/internal/store"
)

//go:embed schema.cue
var schemaSource string

// ValidationError lists every violation found in a configuration.
type ValidationError struct {
	Problems []Problem
}

// Problem is one violation. Path is dotted, e.g. "store.redis.db".
type Problem struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Path == "" {
			parts = append(parts, p.Message)
			continue
		}
		parts = append(parts, p.Path+": "+p.Message)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks c against the CUE schema, then cross-field rules.
func (c Config) Validate() error {
	problems, err := c.checkSchema()
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		problems = c.checkRules()
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c Config) checkSchema() ([]Problem, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	err := value.Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}

	var problems []Problem
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		problems = append(problems, Problem{
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return problems, nil
}

func (c Config) checkRules() []Problem {
	var problems []Problem
	add := func(path, format string, args ...any) {
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Store.Backend {
	case store.BackendSQLite:
		if c.Store.Path == "" {
			add("store.path", "required for the sqlite backend")
		}
	case store.BackendRedis:
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr", "required for the redis backend")
		}
	}

	if !c.Server.InsecureIdentityHeader && c.Server.WorkloadSocket == "" {
		add("server.workload_socket", "required unless insecure_identity_header is set")
	}
	if c.Server.TrustDomain != "" {
		if _, err := spiffeid.TrustDomainFromString(c.Server.TrustDomain); err != nil {
			add("server.trust_domain", "%v", err)
		}
	}
	return problems
}
