package snbuild

import "fmt"

// LinkDirectiveKind distinguishes the three linker directive forms.
type LinkDirectiveKind int

const (
	// DirectiveSearchPath adds a library search path. Search paths must
	// precede the library references that depend on them.
	DirectiveSearchPath LinkDirectiveKind = iota

	// DirectiveLinkLib links a library, optionally with an explicit kind.
	DirectiveLinkLib

	// DirectiveRawArg passes an argument through to the linker verbatim.
	DirectiveRawArg
)

// LinkKind qualifies how a library is linked.
type LinkKind string

const (
	LinkDefault LinkKind = ""
	LinkStatic  LinkKind = "static"
	LinkDylib   LinkKind = "dylib"
)

// LinkDirective is one ordered entry of a LinkPlan.
type LinkDirective struct {
	Kind    LinkDirectiveKind
	LibKind LinkKind // DirectiveLinkLib only
	Value   string   // path, library name, or raw argument
}

func (d LinkDirective) String() string {
	switch d.Kind {
	case DirectiveSearchPath:
		return fmt.Sprintf("search-path=%s", d.Value)
	case DirectiveLinkLib:
		if d.LibKind != LinkDefault {
			return fmt.Sprintf("link-lib=%s=%s", d.LibKind, d.Value)
		}
		return fmt.Sprintf("link-lib=%s", d.Value)
	case DirectiveRawArg:
		return fmt.Sprintf("link-arg=%s", d.Value)
	default:
		return fmt.Sprintf("unknown=%s", d.Value)
	}
}

// LinkPlan is the ordered sequence of linker directives a resolution
// produces. Order matters: search paths precede dependent libraries, and
// whole-archive brackets are paired.
//
// A LinkPlan is built incrementally by the link emitter and consumed exactly
// once downstream.
type LinkPlan struct {
	Directives []LinkDirective
}

// AddSearchPath appends a library search path.
func (p *LinkPlan) AddSearchPath(path string) {
	p.Directives = append(p.Directives, LinkDirective{Kind: DirectiveSearchPath, Value: path})
}

// AddLib appends a library link directive with default kind.
func (p *LinkPlan) AddLib(name string) {
	p.AddLibKind(LinkDefault, name)
}

// AddLibKind appends a library link directive with an explicit kind.
func (p *LinkPlan) AddLibKind(kind LinkKind, name string) {
	p.Directives = append(p.Directives, LinkDirective{Kind: DirectiveLinkLib, LibKind: kind, Value: name})
}

// AddRawArg appends a verbatim linker argument.
func (p *LinkPlan) AddRawArg(arg string) {
	p.Directives = append(p.Directives, LinkDirective{Kind: DirectiveRawArg, Value: arg})
}

// Libs returns the names of all linked libraries, in order.
func (p *LinkPlan) Libs() []string {
	var libs []string
	for _, d := range p.Directives {
		if d.Kind == DirectiveLinkLib {
			libs = append(libs, d.Value)
		}
	}
	return libs
}

// Resolution is the consumed-once output of a successful resolve: the
// embedded build info, the directory holding the built artifact, and the
// ordered link directives for the surrounding linker.
type Resolution struct {
	BuildInfo   []BuildInfoEntry
	ArtifactDir string
	Link        *LinkPlan
	Backend     string
}
