package store

import (
	"context"
	"io"
)

// Export writes every record in s to w in the belief file format.
func Export(ctx context.Context, s Store, w io.Writer) error {
	recs, err := s.List(ctx, ListParams{})
	if err != nil {
		return err
	}
	return Encode(w, recs)
}

// Import decodes a belief file from r and replaces the contents of s with it.
// Nothing is written if any record is malformed.
func Import(ctx context.Context, s Store, r io.Reader, source string) (int, error) {
	recs, err := Decode(r, source)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(ctx, recs.Sorted()); err != nil {
		return 0, err
	}
	if err := s.Save(ctx); err != nil {
		return 0, err
	}
	return len(recs), nil
}
