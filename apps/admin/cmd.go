package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"golang.org/x/term"

	"github.com/trezcool/kampus/apps/shared"
	"github.com/trezcool/kampus/core"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp           = errors.New("help provided")
	errAborted        = errors.New("aborted")
	errNotInteractive = errors.New("confirmation needs a terminal, pass -yes to skip it")
)

type commandLine struct {
	storage    *shared.Storage
	svcs       *shared.Services
	translator ut.Translator
	in         io.Reader
	out        io.Writer
}

// describeError renders err with the field messages of an invalid input, if any.
func (cli *commandLine) describeError(err error) string {
	if details := core.DescribeValidation(err, cli.translator); details != "" {
		return err.Error() + " (" + details + ")"
	}
	return err.Error()
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                         - run a database migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  seed                                           - load the demo courses, results and dating profiles")
	fmt.Fprintln(cli.out, "  import-courses -file PATH                      - create or update courses from a spreadsheet")
	fmt.Fprintln(cli.out, "  import-attendance -file PATH -marked-by ID     - record attendance from a spreadsheet")
	fmt.Fprintln(cli.out, "  remind-shortages [-yes]                        - email students in attendance shortage")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCoursesCmd := flag.NewFlagSet("import-courses", flag.ContinueOnError)
	importCoursesFile := importCoursesCmd.String("file", "", "The .xlsx catalog to import.")

	importAttendanceCmd := flag.NewFlagSet("import-attendance", flag.ContinueOnError)
	importAttendanceFile := importAttendanceCmd.String("file", "", "The .xlsx attendance sheet to import.")
	importAttendanceBy := importAttendanceCmd.String("marked-by", "", "The ID of the faculty member the records are attributed to.")

	remindCmd := flag.NewFlagSet("remind-shortages", flag.ContinueOnError)
	remindYes := remindCmd.Bool("yes", false, "Send without asking for confirmation.")

	for _, fs := range []*flag.FlagSet{importCoursesCmd, importAttendanceCmd, remindCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seed":
		return cli.seed()

	case "import-courses":
		if err := importCoursesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importCoursesFile == "" {
			importCoursesCmd.Usage()
			return errHelp
		}
		return cli.importCourses(*importCoursesFile)

	case "import-attendance":
		if err := importAttendanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importAttendanceFile == "" {
			importAttendanceCmd.Usage()
			return errHelp
		}
		if *importAttendanceBy == "" {
			return shared.NewArgumentError("marked-by", "this flag is required")
		}
		return cli.importAttendance(*importAttendanceFile, *importAttendanceBy)

	case "remind-shortages":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return err
		}
		if !*remindYes {
			if err := cli.confirm("Email every student in attendance shortage?"); err != nil {
				return err
			}
		}
		return cli.remindShortages()

	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question on the terminal.
func (cli *commandLine) confirm(question string) error {
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errNotInteractive
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}
