package state

// Well-known option names; referenced by
// name rather than a closed enum so builtins (shopt/set) can set arbitrary
// ones, matching bash's own extensible option namespace.
const (
	OptExtendedGlobbing        = "extended_globbing"
	OptNocasematch             = "nocasematch"
	OptAppendToHistoryFile     = "append_to_history_file"
	OptPrintCommandsAndArgs    = "print_commands_and_arguments"
	OptNounset                 = "nounset"
	OptNoglob                  = "noglob"
	OptNullglob                = "nullglob"
	OptFailglob                = "failglob"
	OptDotglob                 = "dotglob"
	OptExpandAliases           = "expand_aliases"
)

// Options is the shell's boolean option set, constructed with functional
// options (an Option built by WithOption and applied by New).
type Options struct {
	set map[string]bool
}

// Option is a functional option mutating Options at construction time.
type Option func(*Options)

// WithOption pre-sets a named boolean option.
func WithOption(name string, value bool) Option {
	return func(o *Options) { o.set[name] = value }
}

func newOptions(opts ...Option) *Options {
	o := &Options{set: map[string]bool{}}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// Get reports whether a named option is enabled. Unknown options default
// to false, matching bash's `shopt`/`set -o` behavior for options that
// have never been touched.
func (o *Options) Get(name string) bool { return o.set[name] }

// Set enables or disables a named option.
func (o *Options) Set(name string, value bool) { o.set[name] = value }

// Names returns every option name that has been explicitly set (true or
// false), for `shopt -p`/`set -o` style listing.
func (o *Options) Names() []string {
	names := make([]string, 0, len(o.set))
	for name := range o.set {
		names = append(names, name)
	}
	return names
}
