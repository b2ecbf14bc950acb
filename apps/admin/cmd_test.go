package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/genzugar/backend/apps/shared"
	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
	catalogsvc "github.com/genzugar/backend/services/catalog"
	emailsvc "github.com/genzugar/backend/services/email"
	storagesvc "github.com/genzugar/backend/services/storage"
	inmemdb "github.com/genzugar/backend/storage/database/inmem"
	testutil "github.com/genzugar/backend/tests"
)

const strongPassword = "Sup3r-Gula!"

var (
	ctx     = context.Background()
	usrRepo user.Repository
)

func init() {
	core.Conf.TestMode = true
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)

	// set up services
	logger := core.NopLogger{}
	catalog := catalogsvc.NewMemoryCatalog()
	objects := storagesvc.NewMemoryStorage("https://cdn.test")

	svcs := &shared.Services{Catalog: catalog}
	svcs.User = user.NewService(usrRepo, emailsvc.NewOutbox(), logger)
	svcs.BMI = bmi.NewService(inmemdb.NewBMIRepository(db), svcs.User, logger)
	svcs.Ebook = ebook.NewService(inmemdb.NewEbookRepository(db), objects, catalog, logger)
	svcs.Video = video.NewService(inmemdb.NewVideoRepository(db), catalog)
	svcs.Glossary = glossary.NewService(inmemdb.NewGlossaryRepository(db), catalog)
	svcs.Module = module.NewService(inmemdb.NewModuleRepository(db), catalog)
	svcs.Progress = progress.NewService(inmemdb.NewProgressRepository(db), svcs.BMI, svcs.Module, svcs.Ebook, svcs.Video)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		svcs:   svcs,
		openDB: func() (*sql.DB, error) { return nil, nil },
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (cli *commandLine) run(args ...string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func checkErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	runMigrationFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return errors.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return errors.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return errors.New("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return errors.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s)"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "quiz_attempts", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(tt.args...), tt)
		})
	}

	t.Run("in-memory database", func(t *testing.T) {
		cli.openDB = func() (*sql.DB, error) { return nil, errInMemory }
		assert.Equal(t, errInMemory, cli.run("migrate", "up"))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "Budi Santoso", "budi@genzugar.id", "old-pwd", false, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no flags", args: []string{"adduser"}, wantErrStr: "required flag(s)"},
		{name: "empty password", args: []string{"adduser", "--email", "siti@genzugar.id", "--name", "Siti"}, wantErr: errEmptyPassword},
		{name: "weak password", args: []string{"adduser", "--email", "siti@genzugar.id", "--name", "Siti"}, extra: extra{pwd: "abc"}, wantErrStr: "failed on the 'pwdminlen' tag"},
		{name: "invalid email", args: []string{"adduser", "--email", "siti", "--name", "Siti"}, extra: extra{pwd: strongPassword}, wantErrStr: "email"},
		{name: "create admin", args: []string{"adduser", "--email", "Siti@GenZugar.id", "--name", " Siti ", "--admin"}, extra: extra{pwd: strongPassword}},
		{name: "update existing", args: []string{"adduser", "--email", existing.Email, "--name", "ignored", "--admin"}, extra: extra{pwd: strongPassword}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(tt.args...), tt)
		})
	}

	siti, err := cli.svcs.User.GetByEmail(ctx, "siti@genzugar.id")
	require.NoError(t, err)
	assert.Equal(t, "Siti", siti.FullName)
	assert.True(t, siti.IsAdmin)
	assert.True(t, siti.IsActive)
	assert.NoError(t, siti.CheckPassword(strongPassword))

	budi, err := cli.svcs.User.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", budi.FullName)
	assert.True(t, budi.IsAdmin)
	assert.True(t, budi.IsActive)
	assert.NoError(t, budi.CheckPassword(strongPassword))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@genzugar.id", "old-pwd", false, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErrStr: "required flag(s)"},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@genzugar.id"}, extra: extra{pwd: strongPassword}, wantErr: user.ErrNotFound},
		{name: "empty password", args: []string{"resetpassword", "--email", usr.Email}, wantErr: errEmptyPassword},
		{name: "weak password", args: []string{"resetpassword", "--email", usr.Email}, extra: extra{pwd: "ayu"}, wantErrStr: "password must contain at least 6 characters"},
		{name: "reset", args: []string{"resetpassword", "--email", " AYU@genzugar.id"}, extra: extra{pwd: strongPassword}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(tt.args...)
			checkErr(t, err, tt)

			refreshed, gerr := cli.svcs.User.GetByID(ctx, usr.ID)
			require.NoError(t, gerr)
			if err == nil {
				assert.NoError(t, refreshed.CheckPassword(strongPassword))
			} else {
				assert.Equal(t, usr.PasswordHash, refreshed.PasswordHash)
			}
		})
	}
}

const seedYAML = `
glossary:
  - term: Hipoglikemia
    definition: Kadar gula darah terlalu rendah.
    category: kondisi
  - term: Insulin
    definition: Hormon yang mengatur gula darah.
videos:
  - title: Apa itu diabetes?
    youtube_url: https://youtu.be/dQw4w9WgXcQ
    category: dasar
    is_published: true
ebooks:
  - title: Panduan Gizi
    author: Tim Gen-Zugar
    document_url: https://cdn.test/documents/panduan_gizi.pdf
    is_published: true
modules:
  - title: Mengenal Diabetes
    description: Dasar-dasar diabetes.
    module_order: 1
    learning_objectives: [Memahami gula darah]
    estimated_duration_minutes: 15
    is_published: true
    contents:
      - title: Video pengantar
        content_type: video
        content_order: 1
        content_data:
          youtube_url: https://youtu.be/dQw4w9WgXcQ
      - title: Kuis
        content_type: quiz
        content_order: 2
        content_data:
          passing_score: 60
          questions:
            - question: Apa itu insulin?
              options: [Hormon, Vitamin]
              answer_index: 0
`

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-content.yaml"), []byte(seedYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a seed"), 0o600))

	badDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "bad.yml"),
		[]byte("modules:\n  - title: Kuis kosong\n    contents:\n      - title: Q\n        content_type: quiz\n        content_data: {}\n"), 0o600))

	tests := []cliTest{
		{name: "missing dir", args: []string{"seed", "--dir", filepath.Join(dir, "nope")}, wantErrStr: "reading"},
		{name: "invalid content", args: []string{"seed", "--dir", badDir}, wantErrStr: "content \"Q\""},
		{name: "seed", args: []string{"seed", "--dir", dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(tt.args...), tt)
		})
	}
	assert.Contains(t, out.String(), "created 2 terms, 1 videos, 1 ebooks, 1 modules (2 content items); skipped 0 existing")

	modules, err := cli.svcs.Module.Query(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Mengenal Diabetes", modules[0].Title)

	// seeding twice is a no-op
	out.Reset()
	require.NoError(t, cli.run("seed", "--dir", dir))
	assert.Contains(t, out.String(), "created 0 terms, 0 videos, 0 ebooks, 0 modules (0 content items); skipped 5 existing")

	terms, err := cli.svcs.Glossary.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, terms, 2)
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)

	ayu := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@genzugar.id", strongPassword, false, true)
	testutil.CreateUser(t, usrRepo, "Budi Santoso", "budi@genzugar.id", strongPassword, true, true)
	_, err := cli.svcs.BMI.Record(ctx, ayu.ID, bmi.NewMeasurement{HeightCm: 160, WeightKg: 57.6})
	require.NoError(t, err)
	_, err = cli.svcs.BMI.Record(ctx, ayu.ID, bmi.NewMeasurement{HeightCm: 160, WeightKg: 44.3})
	require.NoError(t, err)

	dir := t.TempDir()
	tests := []cliTest{
		{name: "no kind", args: []string{"export"}, wantErrStr: "accepts 1 arg(s)"},
		{name: "unknown kind", args: []string{"export", "quizzes"}, wantErrStr: "invalid argument \"quizzes\""},
		{name: "users", args: []string{"export", "users", "--out", filepath.Join(dir, "users.xlsx")}, extra: 3},
		{name: "bmi", args: []string{"export", "bmi", "-o", filepath.Join(dir, "bmi.xlsx")}, extra: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(tt.args...)
			checkErr(t, err, tt)
			if err != nil {
				return
			}

			path := tt.args[len(tt.args)-1]
			f, err := excelize.OpenFile(path)
			require.NoError(t, err)
			defer f.Close()

			sheet := f.GetSheetName(0)
			rows, err := f.GetRows(sheet)
			require.NoError(t, err)
			assert.Len(t, rows, tt.extra.(int))
			assert.Contains(t, out.String(), "exported 2 rows to "+path)
		})
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "bmi.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	category, err := f.GetCellValue("Bmi", "G2")
	require.NoError(t, err)
	assert.Contains(t, []string{"normal", "underweight"}, category)
	email, err := f.GetCellValue("Bmi", "B2")
	require.NoError(t, err)
	assert.Equal(t, "ayu@genzugar.id", email)
}
