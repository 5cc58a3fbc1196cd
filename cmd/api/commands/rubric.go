package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Rubric flags
	rubricOrder  int16
	rubricParent uint
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Manage rubrics",
	Long: `Manage the two-level rubric hierarchy.

Subcommands:
  add     - Add a super-rubric, or a sub-rubric with --parent
  list    - Show super-rubrics and sub-rubrics
  delete  - Delete an unused rubric`,
}

var rubricAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a rubric",
	Long: `Add a rubric.

Examples:
  bboard rubric add Vehicles --order 1
  bboard rubric add Bikes --parent 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := adminService(cmd.Context())
		if err != nil {
			return err
		}
		var parent *uint
		if cmd.Flags().Changed("parent") {
			parent = &rubricParent
		}
		r, err := svc.CreateRubric(cmd.Context(), args[0], rubricOrder, parent)
		if err != nil {
			return err
		}
		fmt.Printf("created rubric %d: %s\n", r.ID, r)
		return nil
	},
}

var rubricListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rubrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := adminService(cmd.Context())
		if err != nil {
			return err
		}
		tree, err := svc.Rubrics(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tORDER\tNAME")
		for _, r := range tree.Super {
			fmt.Fprintf(w, "%d\tsuper\t%d\t%s\n", r.ID, r.SortOrder, r)
		}
		for _, r := range tree.Sub {
			fmt.Fprintf(w, "%d\tsub\t%d\t%s\n", r.ID, r.SortOrder, r)
		}
		return w.Flush()
	},
}

var rubricDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a rubric that no listing or sub-rubric uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rubric id %q", args[0])
		}
		svc, err := adminService(cmd.Context())
		if err != nil {
			return err
		}
		if err := svc.DeleteRubric(cmd.Context(), uint(id)); err != nil {
			return err
		}
		fmt.Printf("deleted rubric %d\n", id)
		return nil
	},
}

func init() {
	rubricAddCmd.Flags().Int16Var(&rubricOrder, "order", 0, "Sort order")
	rubricAddCmd.Flags().UintVar(&rubricParent, "parent", 0, "Parent rubric id; makes a sub-rubric")

	rubricCmd.AddCommand(rubricAddCmd, rubricListCmd, rubricDeleteCmd)
	rootCmd.AddCommand(rubricCmd)
}

// adminService wires the service for maintenance commands. Files go to the
// configured storage so deletes clean up the same place the server writes.
func adminService(ctx context.Context) (*board.Service, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	storage, err := newStorage(ctx)
	if err != nil {
		return nil, err
	}
	return newService(store.New(db), storage), nil
}
