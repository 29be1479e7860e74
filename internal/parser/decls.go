package parser

import (
	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/token"
)

// parseFunction parses `fn name(params) -> ret { contracts; body }`.
// inClass/inStage callers supply the surrounding context implicitly by how
// they use the returned Function (as a method vs a free function). The
// private modifier is recognised in every context and simply left unused
// where it doesn't apply; override is recognised only when allowOverride
// is set.
func (p *Parser) parseFunction(allowOverride bool) ast.Spanned[*ast.Function] {
	start := p.cur().Span
	isPrivate := false
	isOverride := false
	for {
		if _, ok := p.accept(token.KwPrivate); ok {
			isPrivate = true
			continue
		}
		if allowOverride {
			if _, ok := p.accept(token.KwOverride); ok {
				isOverride = true
				continue
			}
		}
		break
	}
	p.expect(token.KwFn, "'fn'")
	nameTok := p.expect(token.Ident, "function name")
	name := ast.NewSpanned(nameTok.Lit, nameTok.Span)

	var typeParams []string
	if p.at(token.Lt) {
		p.enterAngle()
		p.advance()
		for !p.at(token.Gt) {
			typeParams = append(typeParams, p.expect(token.Ident, "type parameter").Lit)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.exitAngle()
		p.expect(token.Gt, "'>'")
	}

	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.at(token.RParen) {
		params = append(params, p.parseParam())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")

	var ret *ast.Type
	if _, ok := p.accept(token.Arrow); ok {
		ret = p.parseType()
	} else {
		ret = ast.Basic(ast.TVoid)
	}

	// A bare trailing `raises` names the function fallible syntactically;
	// error-set inference (§4.E) still computes the authoritative error set
	// and may widen IsFallible even for functions that omit this keyword
	// (e.g. one that calls another fallible function without `catch`).
	isFallible := false
	if _, ok := p.accept(token.KwRaises); ok {
		isFallible = true
	}

	fn := &ast.Function{
		ID:         ast.NewID(),
		Name:       name,
		Params:     params,
		Return:     ret,
		IsFallible: isFallible,
		IsPrivate:  isPrivate,
		IsOverride: isOverride,
		TypeParams: typeParams,
	}

	fn.Contracts = p.parseContracts()
	fn.Body = p.parseBlock()

	return ast.NewSpanned(fn, p.span(start))
}

func (p *Parser) parseParam() ast.Param {
	ambient := false
	if _, ok := p.accept(token.KwAmbient); ok {
		ambient = true
	}
	nameTok := p.expect(token.Ident, "parameter name")
	p.expect(token.Colon, "':'")
	typ := p.parseType()
	return ast.Param{ID: ast.NewID(), Name: nameTok.Lit, Type: typ, Ambient: ambient}
}

// parseContracts parses zero or more `requires`/`ensures`/`invariant`
// clauses preceding a function body, each restricted to the decidable
// fragment (validated later, §4.D) but parsed here as ordinary expressions.
func (p *Parser) parseContracts() []ast.Contract {
	var out []ast.Contract
	for {
		var kind ast.ContractKind
		var kindTok token.Token
		switch p.cur().Kind {
		case token.KwRequires:
			kind, kindTok = ast.ContractRequires, p.advance()
		case token.KwEnsures:
			kind, kindTok = ast.ContractEnsures, p.advance()
		case token.KwInvariant:
			kind, kindTok = ast.ContractInvariant, p.advance()
		default:
			return out
		}
		exprStart := p.cur().Span
		e := p.parseExpr()
		out = append(out, ast.Contract{
			Kind: ast.NewSpanned(kind, kindTok.Span),
			Expr: ast.NewSpanned(e, p.span(exprStart)),
		})
		p.skipStatementTerminator()
	}
}

func (p *Parser) parseBlock() []ast.Spanned[ast.Stmt] {
	p.expect(token.LBrace, "'{'")
	var stmts []ast.Spanned[ast.Stmt]
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		stmts = append(stmts, p.parseStmt())
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")
	return stmts
}

func (p *Parser) parseClass() ast.Spanned[*ast.Class] {
	start := p.cur().Span
	p.expect(token.KwClass, "'class'")
	nameTok := p.expect(token.Ident, "class name")

	var typeParams []string
	if p.at(token.Lt) {
		p.enterAngle()
		p.advance()
		for !p.at(token.Gt) {
			typeParams = append(typeParams, p.expect(token.Ident, "type parameter").Lit)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.exitAngle()
		p.expect(token.Gt, "'>'")
	}

	var implements []ast.Spanned[string]
	if _, ok := p.accept(token.Colon); ok {
		for {
			t := p.expect(token.Ident, "trait name")
			implements = append(implements, ast.NewSpanned(t.Lit, t.Span))
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}

	lifecycle := ast.LifecycleTransient
	// `class Foo singleton { ... }` / `class Foo scoped { ... }` annotation,
	// recognised as bare identifiers immediately before the body brace.
	if p.cur().Kind == token.Ident {
		switch p.cur().Lit {
		case "singleton":
			lifecycle = ast.LifecycleSingleton
			p.advance()
		case "scoped":
			lifecycle = ast.LifecycleScoped
			p.advance()
		}
	}

	cls := &ast.Class{
		ID:         ast.NewID(),
		Name:       ast.NewSpanned(nameTok.Lit, nameTok.Span),
		Lifecycle:  lifecycle,
		Implements: implements,
		TypeParams: typeParams,
	}

	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.KwFn, token.KwPrivate:
			fn := p.parseFunction(false)
			cls.Methods = append(cls.Methods, fn)
		case token.KwInvariant:
			contracts := p.parseContracts()
			cls.Invariants = append(cls.Invariants, contracts...)
		case token.Ident:
			cls.Fields = append(cls.Fields, p.parseField())
		default:
			p.errorf(p.cur().Span, "expected a field or method inside class body")
			p.advance()
		}
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")

	return ast.NewSpanned(cls, p.span(start))
}

func (p *Parser) parseField() ast.Field {
	nameTok := p.expect(token.Ident, "field name")
	p.expect(token.Colon, "':'")
	typ := p.parseType()
	return ast.Field{ID: ast.NewID(), Name: nameTok.Lit, Type: typ}
}

func (p *Parser) parseEnum() ast.Spanned[*ast.Enum] {
	start := p.cur().Span
	p.expect(token.KwEnum, "'enum'")
	nameTok := p.expect(token.Ident, "enum name")

	var typeParams []string
	if p.at(token.Lt) {
		p.enterAngle()
		p.advance()
		for !p.at(token.Gt) {
			typeParams = append(typeParams, p.expect(token.Ident, "type parameter").Lit)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.exitAngle()
		p.expect(token.Gt, "'>'")
	}

	e := &ast.Enum{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span), TypeParams: typeParams}

	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		e.Variants = append(e.Variants, p.parseEnumVariant())
		if _, ok := p.accept(token.Comma); !ok {
			p.skipStatementTerminator()
		}
	}
	p.expect(token.RBrace, "'}'")

	return ast.NewSpanned(e, p.span(start))
}

func (p *Parser) parseEnumVariant() ast.EnumVariant {
	nameTok := p.expect(token.Ident, "variant name")
	v := ast.EnumVariant{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}
	if _, ok := p.accept(token.LParen); ok {
		for !p.at(token.RParen) {
			v.Fields = append(v.Fields, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
	}
	return v
}

func (p *Parser) parseTrait() ast.Spanned[*ast.Trait] {
	start := p.cur().Span
	p.expect(token.KwTrait, "'trait'")
	nameTok := p.expect(token.Ident, "trait name")
	tr := &ast.Trait{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}

	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		tr.Methods = append(tr.Methods, p.parseTraitMethod())
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")

	return ast.NewSpanned(tr, p.span(start))
}

func (p *Parser) parseTraitMethod() ast.TraitMethod {
	p.expect(token.KwFn, "'fn'")
	nameTok := p.expect(token.Ident, "method name")
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.at(token.RParen) {
		params = append(params, p.parseParam())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	ret := ast.Basic(ast.TVoid)
	if _, ok := p.accept(token.Arrow); ok {
		ret = p.parseType()
	}
	p.accept(token.KwRaises)
	tm := ast.TraitMethod{
		ID:     ast.NewID(),
		Name:   ast.NewSpanned(nameTok.Lit, nameTok.Span),
		Params: params,
		Return: ret,
	}
	tm.Contracts = p.parseContracts()
	if p.at(token.LBrace) {
		tm.HasBody = true
		tm.Body = p.parseBlock()
	}
	return tm
}

func (p *Parser) parseErrorDecl() ast.Spanned[*ast.ErrorDecl] {
	start := p.cur().Span
	p.expect(token.KwError, "'error'")
	nameTok := p.expect(token.Ident, "error name")
	decl := &ast.ErrorDecl{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}
	if _, ok := p.accept(token.LBrace); ok {
		p.skipStatementTerminator()
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			decl.Fields = append(decl.Fields, p.parseField())
			if _, ok := p.accept(token.Comma); !ok {
				p.skipStatementTerminator()
			}
		}
		p.expect(token.RBrace, "'}'")
	}
	return ast.NewSpanned(decl, p.span(start))
}

// parseExtern handles both native-ABI externs (`extern fn name(...) -> T`)
// and Rust-crate imports (`extern rust "path" as alias`), per §6's FFI
// surface.
func (p *Parser) parseExtern(prog *ast.Program) {
	start := p.cur().Span
	p.expect(token.KwExtern, "'extern'")
	if _, ok := p.accept(token.KwRust); ok {
		pathTok := p.expect(token.StringLit, "crate path string")
		alias := pathTok.Lit
		if _, ok := p.accept(token.KwAs); ok {
			alias = p.expect(token.Ident, "alias").Lit
		}
		prog.RustCrateImports = append(prog.RustCrateImports, ast.RustCrateImport{Path: pathTok.Lit, Alias: alias})
		return
	}

	p.expect(token.KwFn, "'fn'")
	nameTok := p.expect(token.Ident, "extern function name")
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.at(token.RParen) {
		params = append(params, p.parseParam())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	ret := ast.Basic(ast.TVoid)
	if _, ok := p.accept(token.Arrow); ok {
		ret = p.parseType()
	}
	fallible := false
	if _, ok := p.accept(token.KwRaises); ok {
		fallible = true
	}
	ext := &ast.ExternDecl{
		ID:       ast.NewID(),
		Name:     ast.NewSpanned(nameTok.Lit, nameTok.Span),
		Params:   params,
		Return:   ret,
		Fallible: fallible,
	}
	if fallible {
		prog.FallibleExterns = append(prog.FallibleExterns, nameTok.Lit)
	}
	prog.Externs = append(prog.Externs, ast.NewSpanned(ext, p.span(start)))
}

func (p *Parser) parseApp() ast.Spanned[*ast.App] {
	start := p.cur().Span
	p.expect(token.KwApp, "'app'")
	nameTok := p.expect(token.Ident, "app name")
	app := &ast.App{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}

	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.KwFn, token.KwPrivate:
			app.Methods = append(app.Methods, p.parseFunction(false))
		case token.Ident:
			app.Fields = append(app.Fields, p.parseField())
		default:
			p.errorf(p.cur().Span, "expected a field or method inside app body")
			p.advance()
		}
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")

	return ast.NewSpanned(app, p.span(start))
}

// parseStage parses `stage Name[: Parent] { ambient T; inject f: T; requires
// fn sig; override fn body...; fn body... }`. Inheritance itself is left
// unflattened here — desugar.FlattenStages runs as the first desugar pass
// (SPEC_FULL §3) once the whole module graph (and thus every Stage's
// Parent) is visible.
func (p *Parser) parseStage() ast.Spanned[*ast.Stage] {
	start := p.cur().Span
	p.expect(token.KwStage, "'stage'")
	nameTok := p.expect(token.Ident, "stage name")
	stage := &ast.Stage{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}

	if _, ok := p.accept(token.Colon); ok {
		parentTok := p.expect(token.Ident, "parent stage name")
		parent := ast.NewSpanned(parentTok.Lit, parentTok.Span)
		stage.Parent = &parent
	}

	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.KwAmbient:
			p.advance()
			typeTok := p.expect(token.Ident, "ambient type name")
			stage.AmbientTypes = append(stage.AmbientTypes, ast.NewSpanned(typeTok.Lit, typeTok.Span))
		case token.KwRequires:
			p.advance()
			stage.RequiredMethods = append(stage.RequiredMethods, p.parseTraitMethod())
		case token.KwOverride, token.KwFn, token.KwPrivate:
			stage.Methods = append(stage.Methods, p.parseFunction(true))
		case token.Ident:
			stage.InjectFields = append(stage.InjectFields, p.parseField())
		default:
			p.errorf(p.cur().Span, "expected a stage member")
			p.advance()
		}
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")

	return ast.NewSpanned(stage, p.span(start))
}

func (p *Parser) parseTest() ast.Spanned[*ast.TestBlock] {
	start := p.cur().Span
	p.expect(token.KwTest, "'test'")
	nameTok := p.expect(token.StringLit, "test name string")
	tb := &ast.TestBlock{ID: ast.NewID(), Name: ast.NewSpanned(nameTok.Lit, nameTok.Span)}
	tb.Body = p.parseBlock()
	return ast.NewSpanned(tb, p.span(start))
}
