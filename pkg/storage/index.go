package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FileRecord is indexed metadata for one project file, populated by the
// code-search/index tooling and queried by the lookup_context and find_symbol
// tools and the coordinator's context-gathering step.
type FileRecord struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum,omitempty"`
	Language  string    `json:"language,omitempty"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SymbolRecord is one indexed function/type/interface definition.
type SymbolRecord struct {
	FilePath  string `json:"filePath"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// ImportRecord is one import edge discovered in a file.
type ImportRecord struct {
	FilePath   string `json:"filePath"`
	ImportPath string `json:"importPath"`
}

// UpsertFileRecord stores or updates metadata for an indexed file.
func (s *Store) UpsertFileRecord(ctx context.Context, rec *FileRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_index (path, checksum, language, size_bytes, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum=excluded.checksum,
			language=excluded.language,
			size_bytes=excluded.size_bytes,
			summary=excluded.summary,
			updated_at=excluded.updated_at
	`, rec.Path, rec.Checksum, rec.Language, rec.SizeBytes, rec.Summary, rec.UpdatedAt)
	return err
}

// ReplaceSymbols replaces all indexed symbols for a file.
func (s *Store) ReplaceSymbols(ctx context.Context, filePath string, symbols []SymbolRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_symbols WHERE file_path = ?`, filePath); err != nil {
		return err
	}

	if len(symbols) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO file_symbols (file_path, name, kind, signature, start_line, end_line)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sym := range symbols {
			if _, err := stmt.ExecContext(ctx, filePath, sym.Name, sym.Kind, sym.Signature, sym.StartLine, sym.EndLine); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ReplaceImports replaces all indexed imports for a file.
func (s *Store) ReplaceImports(ctx context.Context, filePath string, imports []ImportRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_imports WHERE file_path = ?`, filePath); err != nil {
		return err
	}

	if len(imports) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO file_imports (file_path, import_path)
			VALUES (?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, imp := range imports {
			if _, err := stmt.ExecContext(ctx, filePath, imp.ImportPath); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// SearchFiles performs a substring search over indexed file paths and
// summaries, optionally restricted to a glob.
func (s *Store) SearchFiles(ctx context.Context, query, pathGlob string, limit int) ([]FileRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	stmt := "SELECT path, checksum, language, size_bytes, summary, updated_at FROM file_index"
	where := []string{}
	args := []any{}

	if pathGlob != "" {
		where = append(where, "path LIKE ? ESCAPE '\\'")
		args = append(args, globToLike(pathGlob))
	}
	if query != "" {
		where = append(where, "(path LIKE ? ESCAPE '\\' OR summary LIKE ? ESCAPE '\\')")
		pat := "%" + query + "%"
		args = append(args, pat, pat)
	}
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.Path, &rec.Checksum, &rec.Language, &rec.SizeBytes, &rec.Summary, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SearchSymbols finds indexed symbols by name and optional path glob.
func (s *Store) SearchSymbols(ctx context.Context, symbol, pathGlob string, limit int) ([]SymbolRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	stmt := "SELECT file_path, name, kind, signature, start_line, end_line FROM file_symbols"
	where := []string{}
	args := []any{}

	if symbol != "" {
		where = append(where, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+symbol+"%")
	}
	if pathGlob != "" {
		where = append(where, "file_path LIKE ? ESCAPE '\\'")
		args = append(args, globToLike(pathGlob))
	}
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY file_path LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SymbolRecord
	for rows.Next() {
		var rec SymbolRecord
		if err := rows.Scan(&rec.FilePath, &rec.Name, &rec.Kind, &rec.Signature, &rec.StartLine, &rec.EndLine); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func globToLike(glob string) string {
	glob = strings.ReplaceAll(glob, "\\", "\\\\")
	glob = strings.ReplaceAll(glob, "%", "\\%")
	glob = strings.ReplaceAll(glob, "_", "\\_")
	glob = strings.ReplaceAll(glob, "*", "%")
	return glob
}

// GetAllFileChecksums returns path->checksum for every indexed file, used by
// an incremental indexer to decide which files changed since the last pass.
func (s *Store) GetAllFileChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, checksum FROM file_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checksums := make(map[string]string)
	for rows.Next() {
		var path, checksum string
		if err := rows.Scan(&path, &checksum); err != nil {
			return nil, err
		}
		checksums[path] = checksum
	}
	return checksums, rows.Err()
}

// DeleteFileRecord removes a file and its associated symbols/imports from the index.
func (s *Store) DeleteFileRecord(ctx context.Context, filePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_symbols WHERE file_path = ?`, filePath); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_imports WHERE file_path = ?`, filePath); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_index WHERE path = ?`, filePath); err != nil {
		return err
	}

	return tx.Commit()
}
