package ast

// Lifecycle is a class's DI lifetime (glossary: singleton, scoped,
// transient).
type Lifecycle int

const (
	LifecycleTransient Lifecycle = iota
	LifecycleSingleton
	LifecycleScoped
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleSingleton:
		return "singleton"
	case LifecycleScoped:
		return "scoped"
	default:
		return "transient"
	}
}

// Param is a function/method parameter. Carries its own UUID since spec.md
// §3 lists parameters among the nameable entities.
type Param struct {
	ID      ID
	Name    string
	Type    *Type
	Ambient bool // `ambient T` parameter, rewritten by desugar (§4.C)
}

// Field is a class field.
type Field struct {
	ID         ID
	Name       string
	Type       *Type
	IsInjected bool // populated by DI wiring at the constructor-free entry
}

// ContractKind distinguishes invariant/requires/ensures clauses (§4.D).
type ContractKind int

const (
	ContractInvariant ContractKind = iota
	ContractRequires
	ContractEnsures
)

// Contract is one invariant/requires/ensures clause. Expr is restricted to
// the decidable fragment validated by §4.D before type checking.
type Contract struct {
	Kind Spanned[ContractKind]
	Expr Spanned[Expr]
}

// Function is a top-level function, a class/trait/app/stage method.
type Function struct {
	ID         ID
	Name       Spanned[string]
	Params     []Param
	Return     *Type
	IsFallible bool // populated by error-set inference (§4.E)
	Contracts  []Contract
	Body       []Spanned[Stmt]
	IsPrivate  bool
	IsOverride bool // stage `override fn`

	// TypeParams holds generic parameter names before monomorphisation
	// substitutes them away (§4.F). Empty for non-generic functions.
	TypeParams []string
}

// Class declares a struct-shaped value type with methods, optionally
// participating in dependency injection.
type Class struct {
	ID         ID
	Name       Spanned[string]
	Fields     []Field
	Methods    []Spanned[*Function]
	Invariants []Contract
	Lifecycle  Lifecycle
	Implements []Spanned[string] // trait names this class claims to satisfy
	TypeParams []string
}

// EnumVariant is one constructor of an enum (or error) type.
type EnumVariant struct {
	ID     ID
	Name   Spanned[string]
	Fields []*Type // positional payload types
}

// Enum declares a tagged-union type. Built-in nullable types (the prelude's
// Option family, §4.C) are ordinary Enum values prepended to the program.
type Enum struct {
	ID         ID
	Name       Spanned[string]
	Variants   []EnumVariant
	TypeParams []string
}

// ErrorDecl declares a raisable error type — structurally identical to an
// enum-with-fields per spec.md §4.I's layout note, kept as a distinct AST
// node because error sets (§4.E) are tracked separately from enum values.
type ErrorDecl struct {
	ID     ID
	Name   Spanned[string]
	Fields []Field
}

// TraitMethod is one required method signature inside a trait. Contracts
// here are the trait's default contracts, propagated (prepended/appended)
// to implementing classes' own contracts during checking.
type TraitMethod struct {
	ID        ID
	Name      Spanned[string]
	Params    []Param
	Return    *Type
	Contracts []Contract
	HasBody   bool // default-method trait methods may carry a body
	Body      []Spanned[Stmt]
}

// Trait is an open set of required method signatures; classes satisfy a
// trait structurally (no inheritance, per §9).
type Trait struct {
	ID      ID
	Name    Spanned[string]
	Methods []TraitMethod
}

// App is the single DI root class of a program (glossary: App).
type App struct {
	ID      ID
	Name    Spanned[string]
	Methods []Spanned[*Function]
	Fields  []Field
}

// Stage is a unit of code organised around ambient injected values,
// subclassable with `requires fn` abstracting methods (glossary: Stage).
// Inheritance is flattened by desugar.FlattenStages (SPEC_FULL §3) before
// later passes ever see a Stage with a non-empty RequiredMethods.
type Stage struct {
	ID               ID
	Name             Spanned[string]
	Parent           *Spanned[string]
	Methods          []Spanned[*Function]
	RequiredMethods  []TraitMethod
	InjectFields     []Field
	AmbientTypes     []Spanned[string]
	LifecycleOverrides []Spanned[Lifecycle]
}

// ExternDecl declares a foreign function: either a native ABI symbol or a
// Rust-crate import (populated when Crate is non-empty), per §6's FFI
// contract.
type ExternDecl struct {
	ID       ID
	Name     Spanned[string]
	Params   []Param
	Return   *Type
	Fallible bool // extern functions that may report failure via Result<T,E>
	Crate    string
	CratePath string
	Alias    string
}

// TestBlock is one `test "name" { ... }` block, compiled only in test mode
// (§4.I "Tests").
type TestBlock struct {
	ID   ID
	Name Spanned[string]
	Body []Spanned[Stmt]
}

// RustCrateImport records an `extern rust "path" as alias` declaration at
// the program level, driving cargo-metadata discovery in §6's FFI section.
type RustCrateImport struct {
	Path  string
	Alias string
}

// Program is the flat record spec.md §3 describes: ordered sequences of
// every declaration kind, at most one App, zero or more Stages, plus
// auxiliary lists. Declaration order survives all passes.
type Program struct {
	Functions  []Spanned[*Function]
	Classes    []Spanned[*Class]
	Enums      []Spanned[*Enum]
	Traits     []Spanned[*Trait]
	Errors     []Spanned[*ErrorDecl]
	Externs    []Spanned[*ExternDecl]
	App        *Spanned[*App]
	Stages     []Spanned[*Stage]

	Tests            []Spanned[*TestBlock]
	FallibleExterns  []string
	RustCrateImports []RustCrateImport

	Sources *SourceMap
}

func NewProgram() *Program {
	return &Program{Sources: NewSourceMap()}
}
