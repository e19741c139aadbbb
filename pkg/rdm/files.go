package rdm

import (
	"context"
	"io"
	"iter"
	"net/url"
)

// Endpoint templates of the files API.
const (
	draftFilesEndpoint  = "/records/{id}/draft/files"
	draftFileEndpoint   = "/records/{id}/draft/files/{filename}"
	recordFilesEndpoint = "/records/{id}/files"
	recordFileEndpoint  = "/records/{id}/files/{filename}"
)

// DraftFiles is the files collection of a draft.
type DraftFiles struct {
	Resource
}

// Get fetches the files list.
func (f *DraftFiles) Get(ctx context.Context) (*DraftFiles, error) {
	err := f.Resource.Get(ctx, FilesListMetadata)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Create registers files on the draft. Build entries with NewFileEntries.
func (f *DraftFiles) Create(ctx context.Context, entries *Metadata) (*DraftFiles, error) {
	err := f.Post(ctx, FilesListMetadata, WithBody(entries))
	if err != nil {
		return nil, err
	}

	return f, nil
}

// File returns the draft file stored under filename.
func (f *DraftFiles) File(filename string) *DraftFile {
	return &DraftFile{Resource: f.child(draftFileEndpoint, Args{"filename": filename})}
}

// Entries walks the held files list without any request.
func (f *DraftFiles) Entries() (iter.Seq[*DraftFile], error) {
	return entries(&f.Resource, func(hit *Metadata) *DraftFile {
		return &DraftFile{Resource: f.childWithData(draftFileEndpoint, hit)}
	})
}

// Iter fetches the files list and walks it.
func (f *DraftFiles) Iter(ctx context.Context) (iter.Seq[*DraftFile], error) {
	_, err := f.Get(ctx)
	if err != nil {
		return nil, err
	}

	return f.Entries()
}

// DraftFile is a file of a draft at /records/{id}/draft/files/{filename}.
type DraftFile struct {
	Resource
}

// Get fetches the file metadata.
func (f *DraftFile) Get(ctx context.Context) (*DraftFile, error) {
	err := f.Resource.Get(ctx, FileMetadata)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// SetContents uploads the file content from r.
func (f *DraftFile) SetContents(ctx context.Context, r io.Reader) (*DraftFile, error) {
	err := f.Put(ctx, FileMetadata, WithBody(NewStream(r)), WithSuffix("/content"))
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Commit completes the upload of the file.
func (f *DraftFile) Commit(ctx context.Context) (*DraftFile, error) {
	err := f.Post(ctx, FileMetadata, WithSuffix("/commit"))
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Download fetches the file content. The held metadata is not touched.
func (f *DraftFile) Download(ctx context.Context) (*Metadata, error) {
	return download(ctx, &f.Resource)
}

// Delete removes the file from the draft.
func (f *DraftFile) Delete(ctx context.Context) error {
	return f.Resource.Delete(ctx, nil)
}

// RecordFiles is the files collection of a published record.
type RecordFiles struct {
	Resource
}

// Get fetches the files list.
func (f *RecordFiles) Get(ctx context.Context) (*RecordFiles, error) {
	err := f.Resource.Get(ctx, FilesListMetadata)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// File returns the record file stored under filename.
func (f *RecordFiles) File(filename string) *RecordFile {
	return &RecordFile{Resource: f.child(recordFileEndpoint, Args{"filename": filename})}
}

// Entries walks the held files list without any request.
func (f *RecordFiles) Entries() (iter.Seq[*RecordFile], error) {
	return entries(&f.Resource, func(hit *Metadata) *RecordFile {
		return &RecordFile{Resource: f.childWithData(recordFileEndpoint, hit)}
	})
}

// Iter fetches the files list and walks it.
func (f *RecordFiles) Iter(ctx context.Context) (iter.Seq[*RecordFile], error) {
	_, err := f.Get(ctx)
	if err != nil {
		return nil, err
	}

	return f.Entries()
}

// RecordFile is a file of a published record.
type RecordFile struct {
	Resource
}

// Get fetches the file metadata.
func (f *RecordFile) Get(ctx context.Context) (*RecordFile, error) {
	err := f.Resource.Get(ctx, FileMetadata)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Download fetches the file content.
func (f *RecordFile) Download(ctx context.Context) (*Metadata, error) {
	return download(ctx, &f.Resource)
}

func download(ctx context.Context, r *Resource) (*Metadata, error) {
	resp, err := r.Raw(ctx, IncomingStream, WithSuffix("/content"), WithQuery(url.Values{"stream": []string{"true"}}))
	if err != nil {
		return nil, err
	}

	return IncomingStream.Decode(resp.Body)
}

// childWithData derives a resource holding hit, bound by both the parent's
// arguments and the ones derived from hit.
func (r *Resource) childWithData(template string, hit *Metadata) Resource {
	args, err := hit.EndpointArgs()
	child := r.child(template, args)
	child.data = hit

	if child.argsErr == nil {
		child.argsErr = err
	}

	return child
}

// entries walks the list held by r, building one T per item.
func entries[T any](r *Resource, build func(hit *Metadata) T) (iter.Seq[T], error) {
	if r.data == nil {
		return nil, ErrNoData
	}

	list, err := r.data.List()
	if err != nil {
		return nil, err
	}

	return func(yield func(T) bool) {
		for _, hit := range list.Hits {
			if !yield(build(hit)) {
				return
			}
		}
	}, nil
}
