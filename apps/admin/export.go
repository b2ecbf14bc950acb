package main

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/genzugar/backend/core/user"
)

var (
	userHeader = []interface{}{"ID", "Full name", "Email", "Gender", "Date of birth", "Height (cm)", "Weight (kg)",
		"Admin", "Active", "Joined", "Last login"}
	bmiHeader = []interface{}{"User ID", "Email", "Measured at", "Height (cm)", "Weight (kg)", "BMI", "Category"}
)

func (cli *commandLine) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export users|bmi",
		Short:     "Export the users or their BMI history to an Excel workbook",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"users", "bmi"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + ".xlsx"
			}
			n, err := cli.export(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			cli.printf("exported %d rows to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "path of the .xlsx file (default <kind>.xlsx)")
	return cmd
}

func (cli *commandLine) export(ctx context.Context, kind, path string) (int, error) {
	users, err := cli.svcs.User.Query(ctx, &user.QueryFilter{}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying users")
	}

	var (
		header []interface{}
		rows   [][]interface{}
	)
	switch kind {
	case "users":
		header = userHeader
		for _, u := range users {
			rows = append(rows, userRow(u))
		}
	case "bmi":
		header = bmiHeader
		for _, u := range users {
			recs, err := cli.svcs.BMI.History(ctx, u.ID, 0)
			if err != nil {
				return 0, errors.Wrapf(err, "reading BMI history of %s", u.Email)
			}
			for _, r := range recs {
				rows = append(rows, []interface{}{u.ID, u.Email, r.MeasuredAt.Format(time.RFC3339),
					r.HeightCm, r.WeightKg, r.Value, string(r.Category)})
			}
		}
	default:
		return 0, errors.Errorf("unknown export %q", kind)
	}

	if err := writeSheet(path, strings.ToUpper(kind[:1])+kind[1:], header, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func userRow(u user.User) []interface{} {
	row := []interface{}{u.ID, u.FullName, u.Email, u.Gender.String, "", nil, nil, u.IsAdmin, u.IsActive,
		u.CreatedAt.Format(time.RFC3339), ""}
	if u.DateOfBirth.Valid {
		row[4] = u.DateOfBirth.Time.Format("2006-01-02")
	}
	if u.HeightCm.Valid {
		row[5] = u.HeightCm.Float64
	}
	if u.WeightKg.Valid {
		row[6] = u.WeightKg.Float64
	}
	if u.LastLogin.Valid {
		row[10] = u.LastLogin.Time.Format(time.RFC3339)
	}
	return row
}

// writeSheet saves a single-sheet workbook at path, header on the first row.
func writeSheet(path, sheet string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	for i, row := range append([][]interface{}{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return nil
}
