package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/video"
)

type (
	// seedFile is the layout of a YAML seed file. Every section is optional.
	seedFile struct {
		Glossary []seedTerm   `yaml:"glossary"`
		Videos   []seedVideo  `yaml:"videos"`
		Ebooks   []seedEbook  `yaml:"ebooks"`
		Modules  []seedModule `yaml:"modules"`
	}

	seedTerm struct {
		Term       string `yaml:"term"`
		Definition string `yaml:"definition"`
		Category   string `yaml:"category"`
		Example    string `yaml:"example"`
	}

	seedVideo struct {
		Title           string `yaml:"title"`
		Description     string `yaml:"description"`
		YouTubeURL      string `yaml:"youtube_url"`
		ThumbnailURL    string `yaml:"thumbnail_url"`
		DurationMinutes *int   `yaml:"duration_minutes"`
		Category        string `yaml:"category"`
		IsPublished     bool   `yaml:"is_published"`
	}

	seedEbook struct {
		Title                string `yaml:"title"`
		Description          string `yaml:"description"`
		Author               string `yaml:"author"`
		DocumentURL          string `yaml:"document_url"`
		ThumbnailURL         string `yaml:"thumbnail_url"`
		Category             string `yaml:"category"`
		EstimatedReadMinutes *int   `yaml:"estimated_read_minutes"`
		IsPublished          bool   `yaml:"is_published"`
	}

	seedModule struct {
		Title                    string        `yaml:"title"`
		Description              string        `yaml:"description"`
		ModuleOrder              int           `yaml:"module_order"`
		LearningObjectives       []string      `yaml:"learning_objectives"`
		EstimatedDurationMinutes int           `yaml:"estimated_duration_minutes"`
		IsPublished              bool          `yaml:"is_published"`
		Contents                 []seedContent `yaml:"contents"`
	}

	seedContent struct {
		Title        string                 `yaml:"title"`
		ContentType  string                 `yaml:"content_type"`
		ContentOrder int                    `yaml:"content_order"`
		ContentData  map[string]interface{} `yaml:"content_data"`
	}

	// seedReport counts the created entries; entries whose title (or term) already exists are skipped.
	seedReport struct {
		Terms, Videos, Ebooks, Modules, Contents, Skipped int
	}
)

func (cli *commandLine) seedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load glossary terms, videos, e-books and modules from the YAML files of a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := cli.seed(cmd.Context(), dir)
			if err != nil {
				return err
			}
			cli.printf("created %d terms, %d videos, %d ebooks, %d modules (%d content items); skipped %d existing\n",
				rep.Terms, rep.Videos, rep.Ebooks, rep.Modules, rep.Contents, rep.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seed", "directory holding the *.yaml|*.yml seed files")
	return cmd
}

func (cli *commandLine) seed(ctx context.Context, dir string) (seedReport, error) {
	var rep seedReport

	files, err := seedFiles(dir)
	if err != nil {
		return rep, err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return rep, errors.Wrapf(err, "reading %s", path)
		}
		var sf seedFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return rep, errors.Wrapf(err, "parsing %s", path)
		}
		if err := cli.seedFile(ctx, sf, &rep); err != nil {
			return rep, errors.Wrapf(err, "seeding %s", path)
		}
	}
	return rep, nil
}

func seedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (cli *commandLine) seedFile(ctx context.Context, sf seedFile, rep *seedReport) error {
	if err := cli.seedGlossary(ctx, sf.Glossary, rep); err != nil {
		return err
	}
	if err := cli.seedVideos(ctx, sf.Videos, rep); err != nil {
		return err
	}
	if err := cli.seedEbooks(ctx, sf.Ebooks, rep); err != nil {
		return err
	}
	return cli.seedModules(ctx, sf.Modules, rep)
}

func (cli *commandLine) seedGlossary(ctx context.Context, terms []seedTerm, rep *seedReport) error {
	existing, err := cli.svcs.Glossary.List(ctx, "")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t.Term)] = true
	}

	for _, st := range terms {
		nt := glossary.NewTerm{Term: st.Term, Definition: st.Definition, Category: st.Category, Example: st.Example}
		if err := nt.Validate(); err != nil {
			return errors.Wrapf(err, "term %q", st.Term)
		}
		if seen[strings.ToLower(nt.Term)] {
			rep.Skipped++
			continue
		}
		if _, err := cli.svcs.Glossary.Create(ctx, nt); err != nil {
			return err
		}
		seen[strings.ToLower(nt.Term)] = true
		rep.Terms++
	}
	return nil
}

func (cli *commandLine) seedVideos(ctx context.Context, videos []seedVideo, rep *seedReport) error {
	existing, err := cli.svcs.Video.Query(ctx, video.QueryFilter{}, nil)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v.Title] = true
	}

	for _, sv := range videos {
		nv := video.NewVideo{
			Title:           sv.Title,
			Description:     sv.Description,
			YouTubeURL:      sv.YouTubeURL,
			ThumbnailURL:    sv.ThumbnailURL,
			DurationMinutes: sv.DurationMinutes,
			Category:        sv.Category,
			IsPublished:     sv.IsPublished,
		}
		if sv.ThumbnailURL != "" {
			auto := false
			nv.AutoThumbnail = &auto
		}
		if err := nv.Validate(); err != nil {
			return errors.Wrapf(err, "video %q", sv.Title)
		}
		if seen[nv.Title] {
			rep.Skipped++
			continue
		}
		if _, err := cli.svcs.Video.Create(ctx, nv); err != nil {
			return err
		}
		seen[nv.Title] = true
		rep.Videos++
	}
	return nil
}

func (cli *commandLine) seedEbooks(ctx context.Context, ebooks []seedEbook, rep *seedReport) error {
	existing, err := cli.svcs.Ebook.Query(ctx, ebook.QueryFilter{}, nil)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, eb := range existing {
		seen[eb.Title] = true
	}

	for _, se := range ebooks {
		ne := ebook.NewEbook{
			Title:                se.Title,
			Description:          se.Description,
			Author:               se.Author,
			DocumentURL:          se.DocumentURL,
			ThumbnailURL:         se.ThumbnailURL,
			Category:             se.Category,
			EstimatedReadMinutes: se.EstimatedReadMinutes,
			IsPublished:          se.IsPublished,
		}
		if err := ne.Validate(ebook.Files{}); err != nil {
			return errors.Wrapf(err, "ebook %q", se.Title)
		}
		if seen[ne.Title] {
			rep.Skipped++
			continue
		}
		if _, err := cli.svcs.Ebook.Create(ctx, ne, ebook.Files{}); err != nil {
			return err
		}
		seen[ne.Title] = true
		rep.Ebooks++
	}
	return nil
}

func (cli *commandLine) seedModules(ctx context.Context, modules []seedModule, rep *seedReport) error {
	existing, err := cli.svcs.Module.Query(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.Title] = true
	}

	for _, sm := range modules {
		nm := module.NewModule{
			Title:                    sm.Title,
			Description:              sm.Description,
			ModuleOrder:              sm.ModuleOrder,
			LearningObjectives:       sm.LearningObjectives,
			EstimatedDurationMinutes: sm.EstimatedDurationMinutes,
			IsPublished:              sm.IsPublished,
		}
		if err := nm.Validate(); err != nil {
			return errors.Wrapf(err, "module %q", sm.Title)
		}
		if seen[nm.Title] {
			rep.Skipped++
			continue
		}

		// validate every item before creating anything
		contents := make([]module.NewContent, 0, len(sm.Contents))
		for _, sc := range sm.Contents {
			data, err := json.Marshal(sc.ContentData)
			if err != nil {
				return errors.Wrapf(err, "encoding content_data of %q", sc.Title)
			}
			nc := module.NewContent{
				Title:        sc.Title,
				ContentType:  module.ContentType(sc.ContentType),
				ContentOrder: sc.ContentOrder,
				ContentData:  data,
			}
			if err := nc.Validate(); err != nil {
				return errors.Wrapf(err, "module %q: content %q", sm.Title, sc.Title)
			}
			contents = append(contents, nc)
		}

		m, err := cli.svcs.Module.Create(ctx, nm)
		if err != nil {
			return err
		}
		for _, nc := range contents {
			if _, err := cli.svcs.Module.CreateContent(ctx, m, nc); err != nil {
				return err
			}
			rep.Contents++
		}
		seen[nm.Title] = true
		rep.Modules++
	}
	return nil
}
