package main

// This package provides custom checks for "go vet". The first check verifies
// that no comments exceed the "MaxLen" length. The second one verifies that the
// attachment returned when a state is attached to a contract is kept so that
// it can be released.
// It can be used like the following:
// `go build && go vet -vettool=./mcheck -commentLen -attachGuard ./...`
// It ignores files that have as first comment a "// Code generated..." comment
// and comments that start with "//go:generate".

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/unitchecker"
)

// MaxLen is the maximum length of a comment
var MaxLen = 80

var commentAnalyzer = &analysis.Analyzer{
	Name: "commentLen",
	Doc:  "checks the lengths of comments",
	Run:  runCommentLen,
}

var attachAnalyzer = &analysis.Analyzer{
	Name: "attachGuard",
	Doc:  "checks that the attachment of a state is not discarded",
	Run:  runAttachGuard,
}

func main() {
	unitchecker.Main(
		commentAnalyzer,
		attachAnalyzer,
	)
}

// runCommentLen parses all the comments in ast.File
func runCommentLen(pass *analysis.Pass) (interface{}, error) {
fileLoop:
	for _, file := range pass.Files {
		isFirst := true
		for _, cg := range file.Comments {
			for _, c := range cg.List {
				if isFirst && strings.HasPrefix(c.Text, "// Code generated") {
					continue fileLoop
				}

				// in case of /* */ comment there might be multiple lines
				for _, line := range strings.Split(c.Text, "\n") {
					if strings.HasPrefix(line, "//go:generate") {
						continue
					}

					if len(line) > MaxLen {
						pass.Reportf(c.Pos(), "Comment too long: %s (%d)", line, len(line))
					}
				}

				isFirst = false
			}
		}
	}

	return nil, nil
}

// runAttachGuard reports the calls to Attach whose attachment is dropped,
// either as a statement or assigned to the blank identifier.
func runAttachGuard(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(node ast.Node) bool {
			switch x := node.(type) {
			case *ast.ExprStmt:
				checkAttach(pass, x.X)
			case *ast.AssignStmt:
				if len(x.Lhs) == 1 && len(x.Rhs) == 1 && isBlank(x.Lhs[0]) {
					checkAttach(pass, x.Rhs[0])
				}
			}

			return true
		})
	}

	return nil, nil
}

func checkAttach(pass *analysis.Pass, expr ast.Expr) {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Attach" {
		return
	}

	if isAttachment(pass.TypesInfo.TypeOf(call)) {
		pass.Reportf(call.Pos(), "attachment is discarded and never released")
	}
}

func isAttachment(t types.Type) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}

	named, ok := ptr.Elem().(*types.Named)

	return ok && named.Obj().Name() == "Attachment"
}

func isBlank(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && ident.Name == "_"
}
