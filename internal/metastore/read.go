package metastore

import (
	"context"

	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

// ReadTable loads a metadata table from any supported format, including a
// SQLite index built by Build.
func ReadTable(ctx context.Context, path string) (meta.Table, error) {
	format, err := meta.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format != meta.FormatSQLite {
		return meta.Load(path)
	}
	store, err := Open(ctx, path)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "metastore", "open", path, err)
	}
	defer store.Close()
	return store.Table(ctx)
}

// Build imports the metadata file at sourcePath into the index at indexPath.
func Build(ctx context.Context, indexPath, sourcePath string) (Import, error) {
	table, err := meta.Load(sourcePath)
	if err != nil {
		return Import{}, err
	}
	store, err := Open(ctx, indexPath)
	if err != nil {
		return Import{}, err
	}
	defer store.Close()
	return store.Replace(ctx, table, sourcePath)
}
