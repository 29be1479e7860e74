package parser

import "testing"

func TestParseSimpleFunction(t *testing.T) {
	src := `fn add(a: int, b: int) -> int {
	return a + b
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0].Node
	if fn.Name.Node != "add" {
		t.Errorf("got name %q", fn.Name.Node)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body))
	}
}

func TestParseClassWithInvariant(t *testing.T) {
	src := `class Counter {
	count: int

	invariant count >= 0

	fn increment() {
		count = count + 1
	}
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(prog.Classes))
	}
	cls := prog.Classes[0].Node
	if len(cls.Fields) != 1 || cls.Fields[0].Name != "count" {
		t.Fatalf("got fields %+v", cls.Fields)
	}
	if len(cls.Invariants) != 1 {
		t.Fatalf("expected 1 invariant, got %d", len(cls.Invariants))
	}
	if len(cls.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(cls.Methods))
	}
}

func TestParseEnumAndMatch(t *testing.T) {
	src := `enum Shape {
	Circle(float)
	Square(float)
}

fn area(s: Shape) -> float {
	match s {
		Circle(r) => { return r }
		Square(side) => { return side }
	}
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Enums) != 1 || len(prog.Enums[0].Node.Variants) != 2 {
		t.Fatalf("got enums %+v", prog.Enums)
	}
}

func TestParseGenericAngleDisambiguation(t *testing.T) {
	src := `fn identity<T>(x: T) -> T {
	return x
}

fn compare(a: int, b: int) -> bool {
	return a < b
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(prog.Functions))
	}
	if len(prog.Functions[0].Node.TypeParams) != 1 {
		t.Fatalf("expected 1 type param, got %+v", prog.Functions[0].Node.TypeParams)
	}
}

func TestParseStageWithAmbientAndRequires(t *testing.T) {
	src := `stage Base {
	ambient Logger

	requires fn handle(req: int) -> int

	fn run(req: int) -> int {
		return handle(req)
	}
}

stage Derived: Base {
	override fn handle(req: int) -> int {
		return req + 1
	}
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(prog.Stages))
	}
	base := prog.Stages[0].Node
	if len(base.AmbientTypes) != 1 || len(base.RequiredMethods) != 1 {
		t.Fatalf("got stage %+v", base)
	}
	derived := prog.Stages[1].Node
	if derived.Parent == nil || derived.Parent.Node != "Base" {
		t.Fatalf("expected Derived to list Base as parent, got %+v", derived.Parent)
	}
	if len(derived.Methods) != 1 || !derived.Methods[0].Node.IsOverride {
		t.Fatalf("expected one override method, got %+v", derived.Methods)
	}
}

func TestParseChanAndSelect(t *testing.T) {
	src := `fn worker() {
	let tx, rx = chan(int, 4)
	select {
		let v = rx => {
			return
		}
		default => {
			return
		}
	}
}`
	p := New(src, 0)
	_, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestParseContractsWithOld(t *testing.T) {
	src := `fn withdraw(balance: int, amount: int) -> int
	requires amount > 0
	ensures old(balance) - amount == balance
{
	return balance - amount
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	fn := prog.Functions[0].Node
	if len(fn.Contracts) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(fn.Contracts))
	}
}

func TestParseRaiseAndCatch(t *testing.T) {
	src := `error NotFound { id: int }

fn lookup(id: int) -> int raises {
	if id < 0 {
		raise NotFound { id: id }
	}
	return id
}

fn safe(id: int) -> int {
	return lookup(id)! catch 0
}`
	p := New(src, 0)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Errors) != 1 {
		t.Fatalf("expected 1 error decl, got %d", len(prog.Errors))
	}
}

func TestParseInterpolatedStringExpr(t *testing.T) {
	src := `fn greet(name: string) -> string {
	return f"hello {name}!"
}`
	p := New(src, 0)
	_, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestParseStructLiteralAndFieldAccess(t *testing.T) {
	src := `class Point {
	x: int
	y: int
}

fn origin() -> Point {
	return Point{x: 0, y: 0}
}

fn getX(p: Point) -> int {
	return p.x
}`
	p := New(src, 0)
	_, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
