/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: targets.go
Description: Target inspection commands: list-targets shows the registry and locate
prints the branch-entry set of a target's entry function.
*/

package commands

import (
	"fmt"
	"strconv"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/targets"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ListTargets prints every registered target
func ListTargets(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	printBanner(w, "Targets")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Entry", "Seeds"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, name := range targets.Names() {
		t, err := targets.Lookup(name)
		if err != nil {
			return err
		}
		table.Append([]string{name, t.EntryName(), fmt.Sprintf("%q", t.InitialCorpus())})
	}
	table.Render()
	return nil
}

// RunLocate prints the branch entries of a target in function-relative and file lines
func RunLocate(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := viper.GetString("locate.target")
	if len(args) > 0 {
		name = args[0]
	}
	t, err := targets.Lookup(name)
	if err != nil {
		return err
	}
	mode, err := coverage.ParseLocatorMode(viper.GetString("locate.locator"))
	if err != nil {
		return err
	}

	src, err := t.Source()
	if err != nil {
		return fmt.Errorf("%w: %v", coverage.ErrSourceUnavailable, err)
	}
	text, startLine, err := coverage.FunctionSource(src, t.EntryName())
	if err != nil {
		return err
	}
	entries, err := coverage.Locate(text, mode)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printBanner(w, "Branch Entries")
	printField(w, "Target", t.Name())
	printField(w, "Entry function", fmt.Sprintf("%s (line %d)", t.EntryName(), startLine))
	printField(w, "Locator", mode)
	printField(w, "Entries", entries.Len())
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Relative", "File line"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	// relative line 1 is the func line
	for _, line := range entries.Lines() {
		table.Append([]string{strconv.Itoa(line), strconv.Itoa(line + startLine - 1)})
	}
	table.Render()
	return nil
}
