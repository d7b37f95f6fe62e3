/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: locator.go
Description: Branch-entry locator. Scans the source text of the target's entry function
once and records the line that follows every conditional or dispatch construct. Two
modes are offered: a lexical token scan and a go/ast walk with the same semantics.
*/

package coverage

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strings"
)

// SentinelLine is the first entry of every BranchEntrySet. In function-relative
// numbering line 1 holds the signature, so line 2 is the first body statement.
const SentinelLine = 2

// LocatorMode selects how branch constructs are detected
type LocatorMode string

const (
	// LocatorLexical matches branch keywords anywhere on a line, strings and comments included
	LocatorLexical LocatorMode = "lexical"
	// LocatorAST walks the parsed function and ignores strings and comments
	LocatorAST LocatorMode = "ast"
)

// ErrSourceUnavailable is returned when the entry function's source cannot be introspected
var ErrSourceUnavailable = errors.New("target source unavailable")

var branchToken = regexp.MustCompile(`\b(if|else|case|default)\b`)

// ParseLocatorMode validates a mode name
func ParseLocatorMode(s string) (LocatorMode, error) {
	switch LocatorMode(strings.ToLower(s)) {
	case "", LocatorLexical:
		return LocatorLexical, nil
	case LocatorAST:
		return LocatorAST, nil
	default:
		return "", fmt.Errorf("unknown locator mode %q", s)
	}
}

// FunctionSource extracts the text of the function called name from a Go file.
// Methods are addressed as "Type.Method". The returned startLine is the file line
// of the func keyword.
func FunctionSource(src []byte, name string) (string, int, error) {
	if len(src) == 0 {
		return "", 0, fmt.Errorf("%w: empty source", ErrSourceUnavailable)
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, 0)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if funcName(fd) != name {
			continue
		}
		start := fset.Position(fd.Pos())
		end := fset.Position(fd.End())
		return string(src[start.Offset:end.Offset]), start.Line, nil
	}

	return "", 0, fmt.Errorf("%w: function %s not found", ErrSourceUnavailable, name)
}

// funcName returns Name or Recv.Name for methods
func funcName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return fd.Name.Name
	}
	return receiverName(fd.Recv.List[0].Type) + "." + fd.Name.Name
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

// Locate scans function text and returns its branch entries in function-relative
// numbering. The result always starts with SentinelLine.
func Locate(text string, mode LocatorMode) (*BranchEntrySet, error) {
	switch mode {
	case "", LocatorLexical:
		return NewBranchEntrySet(locateLexical(text)), nil
	case LocatorAST:
		lines, err := locateAST(text)
		if err != nil {
			return nil, err
		}
		return NewBranchEntrySet(lines), nil
	default:
		return nil, fmt.Errorf("unknown locator mode %q", mode)
	}
}

func locateLexical(text string) []SourceLine {
	// index 0 is a blank line so that slice positions equal line numbers
	lines := append([]string{""}, strings.Split(text, "\n")...)

	var entries []SourceLine
	for n, line := range lines {
		if branchToken.MatchString(line) {
			entries = append(entries, n+1)
		}
	}
	return entries
}

func locateAST(text string) ([]SourceLine, error) {
	const prelude = "package p\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", prelude+text, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	// file lines are shifted by the prelude
	rel := func(p token.Pos) int { return fset.Position(p).Line - 1 }

	constructs := make(map[int]struct{})
	ast.Inspect(file, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.IfStmt:
			constructs[rel(s.If)] = struct{}{}
			if blk, ok := s.Else.(*ast.BlockStmt); ok {
				constructs[rel(blk.Lbrace)] = struct{}{}
			}
		case *ast.CaseClause:
			constructs[rel(s.Case)] = struct{}{}
		case *ast.CommClause:
			constructs[rel(s.Case)] = struct{}{}
		}
		return true
	})

	entries := make([]SourceLine, 0, len(constructs))
	for line := range constructs {
		entries = append(entries, line+1)
	}
	sort.Ints(entries)
	return entries, nil
}
