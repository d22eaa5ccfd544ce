// qrun compile <file>, qrun debug <file>
package cmd

import (
	"github.com/qobs-build/qrun/internal/compile"
	"github.com/qobs-build/qrun/internal/toolchain"
	"github.com/spf13/cobra"
)

var flagLang string

// compileRequest splits `<file> [-- extra compiler args]`
func compileRequest(cmd *cobra.Command, args []string, debug bool) compile.Request {
	req := compile.Request{Debug: debug}
	fileArgs := args
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		fileArgs = args[:dash]
		req.ExtraArgs = args[dash:]
	}
	if len(fileArgs) > 0 {
		req.SourcePath = fileArgs[0]
	}

	req.Language = flagLang
	if req.Language == "" && req.SourcePath != "" {
		req.Language = toolchain.DetectLanguage(req.SourcePath)
	}
	return req
}

func doCompile(cmd *cobra.Command, args []string, debug bool) {
	cfg := loadConfig()
	_, err := newOrchestrator(cfg).Compile(compileRequest(cmd, args, debug))
	exitOnError(err)
}

var compileCmd = &cobra.Command{
	Use:   "compile <file> [-- compiler args...]",
	Short: "Compile a C/C++ file and run it",
	Long: `Compile a C/C++ file with the configured compiler. Unless run_after_compile is
disabled, the program is started in a new terminal afterwards.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		doCompile(cmd, args, false)
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug <file> [-- compiler args...]",
	Short: "Compile a C/C++ file with debug symbols and run it under the debugger",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		doCompile(cmd, args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{compileCmd, debugCmd} {
		c.Flags().StringVarP(&flagLang, "lang", "l", "", `Language of the file ("C" or "C++"), detected from the extension by default`)
		c.RegisterFlagCompletionFunc("lang", cobra.FixedCompletions([]string{toolchain.LangC, toolchain.LangCpp}, cobra.ShellCompDirectiveNoFileComp))
		rootCmd.AddCommand(c)
	}
}
