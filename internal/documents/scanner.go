package documents

import "github.com/JaimeStill/rag-lab/pkg/repository"

const columns = `id, filename, uploader, kind, size_bytes, page_count, status, storage_key, created_at, updated_at`

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.Uploader,
		&d.Kind,
		&d.SizeBytes,
		&d.PageCount,
		&d.Status,
		&d.StorageKey,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
