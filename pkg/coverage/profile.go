package coverage

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/cover"
)

// FromProfileFile parses a cover profile and analyzes filename against it.
func FromProfileFile(profilePath, filename string) (File, error) {
	profiles, err := cover.ParseProfiles(profilePath)
	if err != nil {
		return File{}, fmt.Errorf("parsing cover profile: %w", err)
	}
	return FromProfiles(profiles, filename, nil)
}

// FromProfiles analyzes the source of filename against the matching cover
// profile blocks. src is read from filename when nil.
//
// A line is missing when a statement starting on it lies in a block that
// never ran. Branches are named "from->to": from is the line of the if,
// switch, select, for or range statement and to the first line of the
// branch target; a branch is missing when its target block never ran.
// The untaken side of an if without else and the exit of a loop are
// derived from counts, so a profile in set mode may under-report them.
func FromProfiles(profiles []*cover.Profile, filename string, src []byte) (File, error) {
	blocks := matchBlocks(profiles, filename)
	if len(blocks) == 0 {
		return File{}, fmt.Errorf("no coverage data for %s", filename)
	}

	fset := token.NewFileSet()
	var source any
	if src != nil {
		source = src
	}
	file, err := parser.ParseFile(fset, filename, source, 0)
	if err != nil {
		return File{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	a := &analyzer{fset: fset, blocks: blocks}
	out := File{Functions: make(map[string]Function)}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		name := funcName(fn)
		f := out.Functions[name]
		if f.StartLine == 0 {
			f.StartLine = fset.Position(fn.Pos()).Line
		}
		f.MissingLines = append(f.MissingLines, a.missingLines(fn.Body)...)
		f.MissingBranches = append(f.MissingBranches, a.missingBranches(fn.Body)...)
		slices.Sort(f.MissingLines)
		f.MissingLines = slices.Compact(f.MissingLines)
		if f.MissingLines == nil {
			f.MissingLines = []int{}
		}
		if f.MissingBranches == nil {
			f.MissingBranches = []string{}
		}
		out.Functions[name] = f
	}
	return out, nil
}

// matchBlocks returns the blocks of every profile for filename, merging
// counts of identical blocks.
func matchBlocks(profiles []*cover.Profile, filename string) []cover.ProfileBlock {
	base := filepath.Base(filename)
	merged := make(map[[4]int]int)
	var out []cover.ProfileBlock
	for _, p := range profiles {
		if p.FileName != base && !strings.HasSuffix(p.FileName, "/"+base) {
			continue
		}
		for _, b := range p.Blocks {
			key := [4]int{b.StartLine, b.StartCol, b.EndLine, b.EndCol}
			if i, ok := merged[key]; ok {
				out[i].Count += b.Count
				continue
			}
			merged[key] = len(out)
			out = append(out, b)
		}
	}
	return out
}

func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	if recv := typeName(fn.Recv.List[0].Type); recv != "" {
		return recv + "." + fn.Name.Name
	}
	return fn.Name.Name
}

// typeName returns the base type name of a receiver expression.
func typeName(t ast.Expr) string {
	switch x := t.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.StarExpr:
		return typeName(x.X)
	case *ast.ParenExpr:
		return typeName(x.X)
	case *ast.IndexExpr:
		return typeName(x.X)
	case *ast.IndexListExpr:
		return typeName(x.X)
	}
	return ""
}

type analyzer struct {
	fset   *token.FileSet
	blocks []cover.ProfileBlock
}

// block returns the profile block containing p.
func (a *analyzer) block(p token.Pos) (cover.ProfileBlock, bool) {
	pos := a.fset.Position(p)
	for _, b := range a.blocks {
		afterStart := pos.Line > b.StartLine || (pos.Line == b.StartLine && pos.Column >= b.StartCol)
		beforeEnd := pos.Line < b.EndLine || (pos.Line == b.EndLine && pos.Column < b.EndCol)
		if afterStart && beforeEnd {
			return b, true
		}
	}
	return cover.ProfileBlock{}, false
}

func (a *analyzer) line(p token.Pos) int {
	return a.fset.Position(p).Line
}

func (a *analyzer) missingLines(body *ast.BlockStmt) []int {
	var lines []int
	ast.Inspect(body, func(n ast.Node) bool {
		stmt, ok := n.(ast.Stmt)
		if !ok {
			return true
		}
		switch stmt.(type) {
		case *ast.BlockStmt, *ast.CaseClause, *ast.CommClause, *ast.LabeledStmt, *ast.EmptyStmt:
			return true
		}
		if b, ok := a.block(stmt.Pos()); ok && b.Count == 0 {
			lines = append(lines, a.line(stmt.Pos()))
		}
		return true
	})
	return lines
}

// target is one outgoing edge of a branching statement.
type target struct {
	at   token.Pos // position looked up in the profile
	line int       // line reported as the branch destination
}

func (a *analyzer) bodyTarget(body *ast.BlockStmt) target {
	if len(body.List) > 0 {
		return target{at: body.Lbrace + 1, line: a.line(body.List[0].Pos())}
	}
	return target{at: body.Lbrace + 1, line: a.line(body.Lbrace)}
}

func (a *analyzer) clauseTarget(colon token.Pos, body []ast.Stmt) target {
	if len(body) > 0 {
		return target{at: colon + 1, line: a.line(body[0].Pos())}
	}
	return target{at: colon + 1, line: a.line(colon)}
}

func (a *analyzer) missingBranches(body *ast.BlockStmt) []string {
	next := a.nextLines(body)
	var branches []string
	add := func(from token.Pos, targets ...target) {
		for _, t := range targets {
			b, ok := a.block(t.at)
			if ok && b.Count == 0 {
				branches = append(branches, fmt.Sprintf("%d->%d", a.line(from), t.line))
			}
		}
	}
	edge := func(from token.Pos, to int) {
		branches = append(branches, fmt.Sprintf("%d->%d", a.line(from), to))
	}
	ast.Inspect(body, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.IfStmt:
			targets := []target{a.bodyTarget(s.Body)}
			switch e := s.Else.(type) {
			case *ast.BlockStmt:
				targets = append(targets, a.bodyTarget(e))
			case *ast.IfStmt:
				targets = append(targets, target{at: e.Pos(), line: a.line(e.Pos())})
				next[e] = next[s]
			}
			add(s.Pos(), targets...)
			if to, ok := next[s]; ok && s.Else == nil && !a.elseTaken(s) {
				edge(s.Pos(), to)
			}
		case *ast.ForStmt:
			add(s.Pos(), a.bodyTarget(s.Body))
			if to, ok := next[s]; ok && s.Cond != nil && !a.exitTaken(s.Body) {
				edge(s.Pos(), to)
			}
		case *ast.RangeStmt:
			add(s.Pos(), a.bodyTarget(s.Body))
			if to, ok := next[s]; ok && !a.exitTaken(s.Body) {
				edge(s.Pos(), to)
			}
		case *ast.SwitchStmt:
			add(s.Pos(), a.clauses(s.Body)...)
		case *ast.TypeSwitchStmt:
			add(s.Pos(), a.clauses(s.Body)...)
		case *ast.SelectStmt:
			add(s.Pos(), a.clauses(s.Body)...)
		}
		return true
	})
	return branches
}

// elseTaken reports whether the implicit else of s ran: the condition
// was evaluated more often than the body was entered.
func (a *analyzer) elseTaken(s *ast.IfStmt) bool {
	head, ok := a.block(s.Pos())
	if !ok {
		return true
	}
	then, ok := a.block(s.Body.Lbrace + 1)
	if !ok {
		return true
	}
	return head.Count > then.Count
}

// exitTaken reports whether control ever left a loop normally, judged by
// the block that starts right after its body. A loop with no such block
// is treated as exited.
func (a *analyzer) exitTaken(body *ast.BlockStmt) bool {
	after := a.fset.Position(body.Rbrace + 1)
	b, ok := a.block(body.Rbrace + 1)
	if !ok || b.StartLine != after.Line || b.StartCol != after.Column {
		return true
	}
	return b.Count > 0
}

// nextLines maps each statement to the line control reaches when it
// completes without jumping: the following statement, the head of the
// enclosing loop, or the closing brace of the enclosing block.
func (a *analyzer) nextLines(body *ast.BlockStmt) map[ast.Stmt]int {
	next := make(map[ast.Stmt]int)
	done := make(map[*ast.BlockStmt]bool)
	list := func(stmts []ast.Stmt, end int) {
		for i, st := range stmts {
			to := end
			if i+1 < len(stmts) {
				to = a.line(stmts[i+1].Pos())
			}
			next[st] = to
			if l, ok := st.(*ast.LabeledStmt); ok {
				next[l.Stmt] = to
			}
		}
	}
	ast.Inspect(body, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.ForStmt:
			list(s.Body.List, a.line(s.Pos()))
			done[s.Body] = true
		case *ast.RangeStmt:
			list(s.Body.List, a.line(s.Pos()))
			done[s.Body] = true
		case *ast.BlockStmt:
			if done[s] {
				return true
			}
			list(s.List, a.line(s.Rbrace))
			for _, c := range s.List {
				switch c := c.(type) {
				case *ast.CaseClause:
					list(c.Body, a.line(s.Rbrace))
				case *ast.CommClause:
					list(c.Body, a.line(s.Rbrace))
				}
			}
		}
		return true
	})
	return next
}

func (a *analyzer) clauses(body *ast.BlockStmt) []target {
	var targets []target
	for _, stmt := range body.List {
		switch c := stmt.(type) {
		case *ast.CaseClause:
			targets = append(targets, a.clauseTarget(c.Colon, c.Body))
		case *ast.CommClause:
			targets = append(targets, a.clauseTarget(c.Colon, c.Body))
		}
	}
	return targets
}
