package cmd

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pictlang/pictc/arch/amd64"
	"github.com/pictlang/pictc/format/elf"
	"github.com/pictlang/pictc/internal/ast"
	"github.com/pictlang/pictc/internal/codegen"
	"github.com/pictlang/pictc/internal/ir"
	"github.com/pictlang/pictc/internal/stdlib"
	"github.com/pictlang/pictc/internal/symtab"
)

var (
	astPath     string
	listingPath string
	stdlibPath  string
	outPath     string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a serialised AST into an ELF64 executable",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCompile(); err != nil {
			cmd.PrintErrln("error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	compileCmd.Flags().StringVarP(&astPath, "input", "i", "", "path to the serialised AST (required)")
	compileCmd.Flags().StringVarP(&listingPath, "output", "o", "", "path to write the assembly listing")
	compileCmd.Flags().StringVar(&stdlibPath, "stdlib", "stdlib.bin", "path to the standard-library blob")
	compileCmd.Flags().StringVar(&outPath, "out", "a.out", "path to write the generated ELF executable")
	compileCmd.MarkFlagRequired("input")
}

// runCompile drives the full AST-to-executable pipeline, matching the
// scoped-acquisition discipline of spec §5: every file handle opened here
// is closed on every exit path, including error paths.
func runCompile() error {
	astFile, err := os.Open(astPath)
	if err != nil {
		return fmt.Errorf("opening AST input: %w", err)
	}
	defer astFile.Close()

	root, err := ast.Parse(astFile)
	if err != nil {
		return fmt.Errorf("parsing AST: %w", err)
	}

	blob, err := stdlib.Load(stdlibPath)
	if err != nil {
		return fmt.Errorf("loading standard-library blob: %w", err)
	}

	var listing io.Writer = io.Discard
	if listingPath != "" {
		listingFile, err := os.Create(listingPath)
		if err != nil {
			return fmt.Errorf("creating assembly listing: %w", err)
		}
		defer listingFile.Close()
		listing = listingFile
	}

	funcs := symtab.NewFuncTable(int64(len(blob.Bytes)), blob.InOffset, blob.OutOffset, blob.SqrtOffset)
	buf := ir.NewBuffer(amd64.StdEncoder{}, 1024)

	globals, err := codegen.Generate(root, buf, funcs, int64(len(blob.Bytes)), listing)
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}

	if err := buf.Dump(listing); err != nil {
		return fmt.Errorf("writing assembly listing: %w", err)
	}

	code := make([]byte, buf.IP())
	if err := buf.WriteAll(code); err != nil {
		return fmt.Errorf("encoding instructions: %w", err)
	}

	full := make([]byte, 0, len(blob.Bytes)+len(code))
	full = append(full, blob.Bytes...)
	full = append(full, code...)

	globalValues := make([]int64, len(globals))
	for i, g := range globals {
		globalValues[i] = g.Initial
	}

	if err := writeExecutable(outPath, full, globalValues, int64(len(blob.Bytes))); err != nil {
		return fmt.Errorf("writing executable: %w", err)
	}

	return nil
}

// writeExecutable creates path with permissions 0777 (spec §6.3: "process
// umask is temporarily zeroed during creation"), writing the ELF image
// through elf.Write.
func writeExecutable(path string, code []byte, globals []int64, entryOffset int64) error {
	oldMask := syscall.Umask(0)
	defer syscall.Umask(oldMask)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer f.Close()

	return elf.Write(f, code, globals, entryOffset)
}
