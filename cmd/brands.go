package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/shared"
)

func (r *Runner) brandStore(cmd *cli.Command) (*brands.FileStore, error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir := config.Storage.BrandsDir
	if d := cmd.String("brands-dir"); d != "" {
		dir = d
	}
	return brands.NewFileStore(dir, r.logger), nil
}

// BrandsList prints every stored brand profile.
func (r *Runner) BrandsList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.brandStore(cmd)
	if err != nil {
		return err
	}

	summaries, err := store.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	if len(summaries) == 0 {
		r.writePlain("%s\n", r.styles.Help("No brand profiles in "+store.Dir()))
		return nil
	}

	r.writePlain("%s\n\n", r.styles.Title(fmt.Sprintf("Brand profiles (%d)", len(summaries))))
	for _, s := range summaries {
		r.writePlain("%s  %s\n", r.styles.Key(s.ID), s.Name)
		if s.Description != "" {
			r.writePlain("    %s\n", r.styles.Help(s.Description))
		}
	}
	return nil
}

// BrandsShow prints a single profile.
func (r *Runner) BrandsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: brand id", shared.ErrMissingArgument)
	}

	store, err := r.brandStore(cmd)
	if err != nil {
		return err
	}

	profile, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("brand %q: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}

	r.writePlainHeader(profile.Name())
	attrs := profile.Attributes()
	for _, key := range attrs.Keys() {
		if key == "brand" {
			continue
		}
		v, _ := attrs.Get(key)
		r.writeAttribute(0, key, v)
	}
	return nil
}

func (r *Runner) writeAttribute(depth int, key string, v any) {
	indent := strings.Repeat("  ", depth)
	switch val := v.(type) {
	case *brands.OrderedMap:
		r.writePlain("%s%s\n", indent, r.styles.Key(key))
		for _, k := range val.Keys() {
			nested, _ := val.Get(k)
			r.writeAttribute(depth+1, k, nested)
		}
	case []any:
		r.writePlain("%s%s\n", indent, r.styles.Key(key))
		for _, item := range val {
			if m, ok := item.(*brands.OrderedMap); ok {
				r.writeAttribute(depth+1, "-", m)
				continue
			}
			r.writePlain("%s  - %v\n", indent, item)
		}
	default:
		r.writePlain("%s%s %v\n", indent, r.styles.Key(key+":"), val)
	}
}
