package interpol

import (
	"encoding/base64"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	log "github.com/sirupsen/logrus"
)

// Prefixes of the standard lookups.
const (
	PrefixSys           = "sys"
	PrefixEnv           = "env"
	PrefixConst         = "const"
	PrefixDate          = "date"
	PrefixExpr          = "expr"
	PrefixBase64Encoder = "base64Encoder"
	PrefixBase64Decoder = "base64Decoder"
	PrefixURLEncoder    = "urlEncoder"
	PrefixURLDecoder    = "urlDecoder"
)

// Lookup resolves a variable name to a value. The second return value is
// false if the variable is unknown to the lookup.
type Lookup interface {
	Lookup(name string) (any, bool)
}

// LookupFunc is an adapter to use ordinary functions as lookups.
type LookupFunc func(name string) (any, bool)

// Lookup method implements Lookup interface.
func (f LookupFunc) Lookup(name string) (any, bool) {
	return f(name)
}

// MapLookup resolves variables from a map.
type MapLookup map[string]any

// Lookup method implements Lookup interface.
func (m MapLookup) Lookup(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

type registry struct {
	mutex  sync.RWMutex
	values map[string]any
}

func (r *registry) get(name string) (any, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	value, ok := r.values[name]

	return value, ok
}

func (r *registry) set(name string, value any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if value == nil {
		delete(r.values, name)
		return
	}

	r.values[name] = value
}

func (r *registry) snapshot() map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	res := make(map[string]any, len(r.values))

	for name, value := range r.values {
		res[name] = value
	}

	return res
}

var (
	sysProps  = &registry{values: systemProperties()}
	constants = &registry{values: make(map[string]any)}

	// now is replaced in tests.
	now = time.Now
)

func systemProperties() map[string]any {
	props := map[string]any{
		"os.name":        runtime.GOOS,
		"os.arch":        runtime.GOARCH,
		"go.version":     runtime.Version(),
		"file.separator": string(filepath.Separator),
		"path.separator": string(filepath.ListSeparator),
		"line.separator": "\n",
	}

	if u, err := user.Current(); err == nil {
		props["user.name"] = u.Username
		props["user.home"] = u.HomeDir
	}

	if dir, err := os.Getwd(); err == nil {
		props["user.dir"] = dir
	}

	if host, err := os.Hostname(); err == nil {
		props["host.name"] = host
	}

	return props
}

// SetSystemProperty method sets a system property available through the "sys"
// lookup. An empty value removes the property.
func SetSystemProperty(name, value string) {
	if value == "" {
		sysProps.set(name, nil)
		return
	}

	sysProps.set(name, value)
}

// SystemProperty method returns a system property.
func SystemProperty(name string) (string, bool) {
	value, ok := sysProps.get(name)

	if !ok {
		return "", false
	}

	return value.(string), true
}

// RegisterConstant method registers a named constant available through the
// "const" lookup. Registering nil removes the constant.
func RegisterConstant(name string, value any) {
	constants.set(name, value)
}

// SystemLookup resolves system properties.
var SystemLookup Lookup = LookupFunc(func(name string) (any, bool) {
	return SystemProperty(name)
})

// EnvLookup resolves environment variables.
var EnvLookup Lookup = LookupFunc(func(name string) (any, bool) {
	return os.LookupEnv(name)
})

// ConstantLookup resolves registered constants.
var ConstantLookup Lookup = LookupFunc(func(name string) (any, bool) {
	return constants.get(name)
})

// DateLookup formats the current time. The variable name is the layout; an
// empty name means RFC 3339.
var DateLookup Lookup = LookupFunc(func(layout string) (any, bool) {
	if layout == "" {
		layout = time.RFC3339
	}

	return now().Format(layout), true
})

// ExprLookup evaluates the variable name as an expression. Expressions can call
// env(name) and sys(name) and reference registered constants by name.
var ExprLookup Lookup = LookupFunc(func(src string) (any, bool) {
	env := constants.snapshot()

	env["env"] = func(name string) string {
		return os.Getenv(name)
	}

	env["sys"] = func(name string) string {
		value, _ := SystemProperty(name)
		return value
	}

	value, err := expr.Eval(src, env)

	if err != nil {
		log.WithError(err).WithField("expr", src).Warn("Expression lookup failed.")
		return nil, false
	}

	return value, value != nil
})

// Base64EncoderLookup encodes the variable name with standard base64 encoding.
var Base64EncoderLookup Lookup = LookupFunc(func(name string) (any, bool) {
	return base64.StdEncoding.EncodeToString([]byte(name)), true
})

// Base64DecoderLookup decodes the variable name from standard base64 encoding.
var Base64DecoderLookup Lookup = LookupFunc(func(name string) (any, bool) {
	data, err := base64.StdEncoding.DecodeString(name)

	if err != nil {
		return nil, false
	}

	return string(data), true
})

// URLEncoderLookup escapes the variable name for use in a URL query.
var URLEncoderLookup Lookup = LookupFunc(func(name string) (any, bool) {
	return url.QueryEscape(name), true
})

// URLDecoderLookup unescapes the variable name from a URL query encoding.
var URLDecoderLookup Lookup = LookupFunc(func(name string) (any, bool) {
	value, err := url.QueryUnescape(name)

	if err != nil {
		return nil, false
	}

	return value, true
})

// DefaultLookups method returns the standard lookups keyed by prefix.
func DefaultLookups() map[string]Lookup {
	return map[string]Lookup{
		PrefixSys:           SystemLookup,
		PrefixEnv:           EnvLookup,
		PrefixConst:         ConstantLookup,
		PrefixDate:          DateLookup,
		PrefixExpr:          ExprLookup,
		PrefixBase64Encoder: Base64EncoderLookup,
		PrefixBase64Decoder: Base64DecoderLookup,
		PrefixURLEncoder:    URLEncoderLookup,
		PrefixURLDecoder:    URLDecoderLookup,
	}
}
