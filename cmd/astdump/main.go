// astdump prints the syntax tree of a source file as an S-expression,
// for authoring mutation rule expressions against real parse output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/snow-ghost/rewriter/grammar"
)

func main() {
	lang := flag.String("lang", "", "language tag (defaults to the file extension)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: astdump [-lang tag] <file>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	tag := *lang
	if tag == "" {
		tag = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	if tag == "" {
		log.Fatal("cannot infer language: pass -lang")
	}

	source, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	ast, err := grammar.NewRegistry().Parse(context.Background(), tag, source)
	if err != nil {
		log.Fatal(err)
	}
	defer ast.Close()

	fmt.Println(ast.Root().String())
}
