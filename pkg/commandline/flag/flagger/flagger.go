package flagger

import (
	"flag"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Flag is one command line option, bound to a field of a flags struct.
type Flag struct {
	Name      string
	ShortName string
	Help      string
	MetaVar   string

	target reflect.Value
}

// SetFlag registers the flag on fs under its long name and, when a
// short name is set, under that alias too.
func (f Flag) SetFlag(fs *flag.FlagSet) error {
	bind := f.binder()
	if bind == nil {
		return fmt.Errorf("--%s: unsupported field type %s", f.Name, f.target.Type())
	}
	bind(fs, f.Name, f.Help)
	if f.ShortName != "" {
		bind(fs, f.ShortName, "alias of --"+f.Name)
	}
	return nil
}

// binder adapts the bound field to the matching flag.FlagSet register
// function. Every Var variant FlagSet offers is covered. It returns
// nil for any other field type.
func (f Flag) binder() func(fs *flag.FlagSet, name string, help string) {
	switch p := f.target.Interface().(type) {
	case *bool:
		return func(fs *flag.FlagSet, name, help string) { fs.BoolVar(p, name, *p, help) }
	case *int:
		return func(fs *flag.FlagSet, name, help string) { fs.IntVar(p, name, *p, help) }
	case *int64:
		return func(fs *flag.FlagSet, name, help string) { fs.Int64Var(p, name, *p, help) }
	case *uint:
		return func(fs *flag.FlagSet, name, help string) { fs.UintVar(p, name, *p, help) }
	case *uint64:
		return func(fs *flag.FlagSet, name, help string) { fs.Uint64Var(p, name, *p, help) }
	case *float64:
		return func(fs *flag.FlagSet, name, help string) { fs.Float64Var(p, name, *p, help) }
	case *string:
		return func(fs *flag.FlagSet, name, help string) { fs.StringVar(p, name, *p, help) }
	case *time.Duration:
		return func(fs *flag.FlagSet, name, help string) { fs.DurationVar(p, name, *p, help) }
	case flag.Value:
		return func(fs *flag.FlagSet, name, help string) { fs.Var(p, name, help) }
	}
	return nil
}

// String renders the flag the way usage lines show it, like
// "--name|-n=METAVAR" or "[--verbose|-v]" for booleans.
func (f Flag) String() string {
	head := "--" + f.Name
	if f.ShortName != "" {
		head += "|-" + f.ShortName
	}
	if _, isBool := f.target.Interface().(*bool); isBool {
		return "[" + head + "]"
	}
	return head + "=" + f.metaVar()
}

// metaVar is the placeholder after "=". Without an explicit metavar
// the default value of the field stands in.
func (f Flag) metaVar() string {
	if f.MetaVar != "" {
		return f.MetaVar
	}
	switch v := f.target.Interface().(type) {
	case *string:
		return *v
	case *time.Duration:
		return fmt.Sprintf("%q", v.String())
	case flag.Value:
		return v.String()
	default:
		return fmt.Sprint(f.target.Elem().Interface())
	}
}

// Flagger binds the fields of a flags struct T to command line flags.
type Flagger[T any] struct {
	Flags  []Flag
	Values *T
}

// New builds a Flagger over the exported, `flag:`-tagged fields of
// defaults. Parsed options are written to (and read back from)
// Values.
//
// # Example
//
//	type Flags struct {
//		Name   string        `flag:"name,metavar=MODEL,help=registered model name."`
//		Epochs int           `flag:"epochs,help=training epochs."`
//		Grace  time.Duration `flag:",short=g"` // named "grace" after the field
//	}
//
//	f := New(Flags{Name: "ml_classifier", Epochs: 300})
//	fs, _ := f.SetFlags(flag.NewFlagSet("train", flag.ContinueOnError))
//	fs.Parse([]string{"--epochs", "500"})
//	fmt.Println(f.Values.Epochs) // 500
//
// # Tags
//
// The first element of the tag is the long option name. Leave it
// empty to have the field name used, lowered and hyphenated
// ("RunName" turns into "run-name"). The elements after it are
// attributes:
//
//   - short=S: also accept -S as an alias of the option
//   - metavar=M: placeholder for the value in usage lines
//   - help=...: help text. It runs to the end of the tag, commas
//     included, so write it after the other attributes.
//
// Fields without a `flag:` tag are left alone. Tagged fields of types
// SetFlags cannot register are collected anyway and reported there.
//
// New panics when T is not a struct.
func New[T any](defaults T) *Flagger[T] {
	flgr := &Flagger[T]{Values: &defaults}

	rv := reflect.ValueOf(flgr.Values).Elem()
	if rv.Kind() != reflect.Struct {
		panic("flagger: flags must be a struct")
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}

		flg := parseTag(field.Name, tag)
		if _, ok := rv.Field(i).Interface().(flag.Value); ok {
			flg.target = rv.Field(i)
		} else {
			flg.target = rv.Field(i).Addr()
		}
		flgr.Flags = append(flgr.Flags, flg)
	}

	return flgr
}

// SetFlags registers every flag on fs and returns fs.
func (f *Flagger[T]) SetFlags(fs *flag.FlagSet) (*flag.FlagSet, error) {
	for _, flg := range f.Flags {
		if err := flg.SetFlag(fs); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// String renders all flags on one line, in field order.
func (f *Flagger[T]) String() string {
	strs := make([]string, len(f.Flags))
	for i, flg := range f.Flags {
		strs[i] = flg.String()
	}
	return strings.Join(strs, " ")
}

func parseTag(fieldName string, tag string) Flag {
	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = kebab(fieldName)
	}

	flg := Flag{Name: name}
	for rest != "" {
		var attr string
		attr, rest, _ = strings.Cut(rest, ",")
		key, value, _ := strings.Cut(attr, "=")
		switch key {
		case "short":
			flg.ShortName = value
		case "metavar":
			flg.MetaVar = value
		case "help":
			// help is free text and may contain commas. It takes
			// everything up to the end of the tag.
			if rest != "" {
				value += "," + rest
				rest = ""
			}
			flg.Help = value
		}
	}
	return flg
}

var camelWord = regexp.MustCompile("[A-Z]+[^A-Z]*")

// kebab turns an exported field name like "RunName" into "run-name".
func kebab(fieldName string) string {
	words := camelWord.FindAllString(fieldName, -1)
	if len(words) == 0 {
		return strings.ToLower(fieldName)
	}
	return strings.ToLower(strings.Join(words, "-"))
}
