/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instrument.go
Description: Source-to-source line instrumentation. Rewrites a Go file so that every
statement of every function body is preceded by a probe.Line call carrying the
function name and the statement's ORIGINAL line number. Else-if chains are split so
the else-if line reports its own event. The output is a generated file.
*/

package instrument

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"strconv"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
	"github.com/sirupsen/logrus"
)

// ProbeImport is the import path of the probe package used by instrumented code
const ProbeImport = "github.com/kleascm/akaylee-greybox/pkg/probe"

const probeName = "probe"

// Options controls instrumentation
type Options struct {
	// Functions restricts instrumentation to the named functions ("Type.Method" for
	// methods). Empty means every function in the file.
	Functions []string
	// Source is the name written into the generated header
	Source string
	// Logger is optional
	Logger logrus.FieldLogger
}

// Stats describes one instrumentation run
type Stats struct {
	Functions int `json:"functions"`
	Probes    int `json:"probes"`
	ElseIfs   int `json:"else_ifs"`
}

// Source instruments src and returns the rewritten file
func Source(src []byte, opts Options) ([]byte, *Stats, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, opts.Source, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse source: %w", err)
	}
	if file.Name == nil {
		return nil, nil, fmt.Errorf("failed to parse source: missing package name")
	}
	dec := decorator.NewDecorator(fset)
	f, err := dec.DecorateFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decorate source: %w", err)
	}

	in := &instrumenter{
		fset:  fset,
		nodes: dec.Map.Ast.Nodes,
		stats: &Stats{},
	}
	if len(opts.Functions) > 0 {
		in.only = make(map[string]struct{}, len(opts.Functions))
		for _, fn := range opts.Functions {
			in.only[fn] = struct{}{}
		}
	}

	in.rewrite(f)
	if in.stats.Probes > 0 {
		addImport(f)
	}
	replaceHeader(f, opts.Source)

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, f); err != nil {
		return nil, nil, fmt.Errorf("failed to print instrumented source: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to format instrumented source: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.WithFields(logrus.Fields{
			"source":    opts.Source,
			"functions": in.stats.Functions,
			"probes":    in.stats.Probes,
			"else_ifs":  in.stats.ElseIfs,
		}).Info("Source instrumented")
	}
	return out, in.stats, nil
}

// File instruments the file at inPath and writes the result to outPath
func File(inPath, outPath string, opts Options) (*Stats, error) {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	if opts.Source == "" {
		opts.Source = inPath
	}
	out, stats, err := Source(src, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument %s: %w", inPath, err)
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return stats, nil
}

type instrumenter struct {
	fset  *token.FileSet
	nodes map[dst.Node]ast.Node
	only  map[string]struct{}
	stats *Stats
}

func (in *instrumenter) rewrite(f *dst.File) {
	var current string

	dstutil.Apply(f, func(c *dstutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *dst.FuncDecl:
			current = ""
			if n.Body == nil {
				return false
			}
			name := funcName(n)
			if in.only != nil {
				if _, ok := in.only[name]; !ok {
					return false
				}
			}
			current = name
			in.stats.Functions++
		case *dst.GenDecl:
			// package level closures are never traced
			return false
		}
		return true
	}, func(c *dstutil.Cursor) bool {
		if current == "" {
			return true
		}
		switch n := c.Node().(type) {
		case *dst.BlockStmt:
			n.List = in.probeList(current, n.List)
		case *dst.CaseClause:
			n.Body = in.probeList(current, n.Body)
		case *dst.CommClause:
			n.Body = in.probeList(current, n.Body)
		case *dst.IfStmt:
			if inner, ok := n.Else.(*dst.IfStmt); ok {
				inner.Decs.Before = dst.NewLine
				n.Else = &dst.BlockStmt{
					List: []dst.Stmt{in.probe(current, in.line(inner)), inner},
				}
				in.stats.ElseIfs++
			}
		}
		return true
	})
}

// probeList interleaves a probe before every statement that has an original position
func (in *instrumenter) probeList(fn string, list []dst.Stmt) []dst.Stmt {
	out := make([]dst.Stmt, 0, len(list)*2)
	for _, stmt := range list {
		switch stmt.(type) {
		case *dst.CaseClause, *dst.CommClause:
			// switch and select bodies hold clauses, not statements
			out = append(out, stmt)
			continue
		}
		if line := in.line(stmt); line > 0 && !isProbe(stmt) {
			call := in.probe(fn, line)
			// comments above the statement move above the probe
			call.Decs.Before = stmt.Decorations().Before
			call.Decs.Start = stmt.Decorations().Start
			stmt.Decorations().Start = nil
			stmt.Decorations().Before = dst.NewLine
			out = append(out, call)
		}
		out = append(out, stmt)
	}
	return out
}

func (in *instrumenter) line(n dst.Node) int {
	orig, ok := in.nodes[n]
	if !ok || orig == nil || !orig.Pos().IsValid() {
		return 0
	}
	return in.fset.Position(orig.Pos()).Line
}

func (in *instrumenter) probe(fn string, line int) *dst.ExprStmt {
	in.stats.Probes++
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun: &dst.SelectorExpr{
				X:   &dst.Ident{Name: probeName},
				Sel: &dst.Ident{Name: "Line"},
			},
			Args: []dst.Expr{
				&dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(fn)},
				&dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(line)},
			},
		},
		Decs: dst.ExprStmtDecorations{
			NodeDecs: dst.NodeDecs{Before: dst.NewLine, After: dst.NewLine},
		},
	}
}

func isProbe(stmt dst.Stmt) bool {
	es, ok := stmt.(*dst.ExprStmt)
	if !ok {
		return false
	}
	call, ok := es.X.(*dst.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*dst.SelectorExpr)
	if !ok {
		return false
	}
	x, ok := sel.X.(*dst.Ident)
	return ok && x.Name == probeName && sel.Sel.Name == "Line"
}

func funcName(fd *dst.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return fd.Name.Name
	}
	return receiverName(fd.Recv.List[0].Type) + "." + fd.Name.Name
}

func receiverName(expr dst.Expr) string {
	switch t := expr.(type) {
	case *dst.StarExpr:
		return receiverName(t.X)
	case *dst.Ident:
		return t.Name
	case *dst.IndexExpr:
		return receiverName(t.X)
	case *dst.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func addImport(f *dst.File) {
	quoted := strconv.Quote(ProbeImport)
	for _, imp := range f.Imports {
		if imp.Path != nil && imp.Path.Value == quoted {
			return
		}
	}

	spec := &dst.ImportSpec{
		Path: &dst.BasicLit{Kind: token.STRING, Value: quoted},
		Decs: dst.ImportSpecDecorations{
			NodeDecs: dst.NodeDecs{Before: dst.NewLine, After: dst.NewLine},
		},
	}
	for _, decl := range f.Decls {
		gd, ok := decl.(*dst.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			continue
		}
		gd.Lparen = true
		gd.Specs = append(gd.Specs, spec)
		return
	}

	importDecl := &dst.GenDecl{
		Tok:   token.IMPORT,
		Specs: []dst.Spec{spec},
	}
	f.Decls = append([]dst.Decl{importDecl}, f.Decls...)
}

// replaceHeader drops build constraints and marks the file as generated
func replaceHeader(f *dst.File, source string) {
	header := "// Code generated by akaylee-greybox instrument. DO NOT EDIT."
	if source != "" {
		header = fmt.Sprintf("// Code generated by akaylee-greybox instrument from %s. DO NOT EDIT.", source)
	}

	kept := dst.Decorations{header, "\n"}
	for _, d := range f.Decs.Start {
		if strings.HasPrefix(d, "//go:build") || strings.HasPrefix(d, "// +build") {
			continue
		}
		if d == "\n" && len(kept) > 0 && kept[len(kept)-1] == "\n" {
			continue
		}
		kept = append(kept, d)
	}
	f.Decs.Start = kept
}
