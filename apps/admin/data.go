package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/storage/spreadsheet"
)

func (cli *commandLine) seed() error {
	if err := cli.storage.Seed(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Demo records loaded.")
	return nil
}

func (cli *commandLine) importCourses(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening catalog")
	}
	defer f.Close()

	courses, err := spreadsheet.ReadCourses(f)
	if err != nil {
		return err
	}
	created, updated, err := cli.svcs.Courses.Import(context.Background(), courses)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Courses created: %d, updated: %d\n", created, updated)
	return nil
}

func (cli *commandLine) importAttendance(path, markedBy string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening attendance sheet")
	}
	defer f.Close()

	rows, err := spreadsheet.ReadAttendance(f)
	if err != nil {
		return err
	}
	n, err := cli.svcs.Attendance.Import(context.Background(), markedBy, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Attendance records imported: %d\n", n)
	return nil
}

func (cli *commandLine) remindShortages() error {
	sent, err := cli.svcs.Attendance.RemindShortages(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Shortage reminders sent: %d\n", sent)
	return nil
}
