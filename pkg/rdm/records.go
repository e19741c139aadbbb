package rdm

import (
	"context"
)

// Endpoint templates of the records API.
const (
	recordsEndpoint  = "/records"
	recordEndpoint   = "/records/{id}"
	draftEndpoint    = "/records/{id}/draft"
	versionsEndpoint = "/records/{id}/versions"
)

// RecordList is the /records collection.
type RecordList struct {
	Resource
}

// Record returns the published record with the given id.
func (l *RecordList) Record(id string) *Record {
	return &Record{Resource: l.child(recordEndpoint, Args{"id": id})}
}

// Draft returns an unbound draft resource. It resolves once it holds data.
func (l *RecordList) Draft() *Draft {
	return &Draft{Resource: l.child(draftEndpoint, nil)}
}

// Create creates a new draft. A nil data sends an empty body.
func (l *RecordList) Create(ctx context.Context, data *Metadata) (*Draft, error) {
	draft := l.Draft()

	opts := []RequestOption{WithTarget(draft)}
	if data != nil {
		opts = append(opts, WithBody(data))
	}

	err := l.Post(ctx, DraftMetadata, opts...)
	if err != nil {
		return nil, err
	}

	return draft, nil
}

// Search searches published records. Only the latest version of each record
// is returned unless params.AllVersions is set.
func (l *RecordList) Search(ctx context.Context, params SearchParams) (*Pagination[*Record], error) {
	return paginate(ctx, &l.Resource, params.WithDefaults(), RecordListMetadata, recordFactory(l.client))
}

// Record is a published record at /records/{id}.
type Record struct {
	Resource
}

// Get fetches the record.
func (r *Record) Get(ctx context.Context) (*Record, error) {
	err := r.Resource.Get(ctx, RecordMetadata)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Edit opens a draft of the published record.
func (r *Record) Edit(ctx context.Context) (*Draft, error) {
	return r.Draft().Create(ctx)
}

// NewVersion creates a draft for a new version of the record.
func (r *Record) NewVersion(ctx context.Context) (*Draft, error) {
	return r.Versions().Create(ctx)
}

// Draft returns the draft of this record.
func (r *Record) Draft() *Draft {
	return &Draft{Resource: r.child(draftEndpoint, nil)}
}

// Versions returns the versions collection of this record.
func (r *Record) Versions() *RecordVersions {
	return &RecordVersions{Resource: r.child(versionsEndpoint, nil)}
}

// Files returns the files of this record.
func (r *Record) Files() *RecordFiles {
	return &RecordFiles{Resource: r.child(recordFilesEndpoint, nil)}
}

// RecordVersions is the /records/{id}/versions collection.
type RecordVersions struct {
	Resource
}

// Create creates a draft for a new version. The returned draft is bound
// only through its data, since a new version gets a new id.
func (v *RecordVersions) Create(ctx context.Context) (*Draft, error) {
	draft := &Draft{Resource: NewResource(v.client, draftEndpoint, nil)}

	err := v.Post(ctx, DraftMetadata, WithTarget(draft))
	if err != nil {
		return nil, err
	}

	return draft, nil
}

// Latest fetches the latest published version.
func (v *RecordVersions) Latest(ctx context.Context) (*Record, error) {
	record := &Record{Resource: NewResource(v.client, recordEndpoint, nil)}

	err := v.Get(ctx, RecordMetadata, WithSuffix("/latest"), WithTarget(record))
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Search lists the versions of the record. All versions are always
// requested.
func (v *RecordVersions) Search(ctx context.Context, params SearchParams) (*Pagination[*Record], error) {
	params = params.WithDefaults()
	params.AllVersions = true

	return paginate(ctx, &v.Resource, params, RecordListMetadata, recordFactory(v.client))
}

// Draft is an unpublished draft at /records/{id}/draft.
type Draft struct {
	Resource
}

// Get fetches the draft.
func (d *Draft) Get(ctx context.Context) (*Draft, error) {
	err := d.Resource.Get(ctx, DraftMetadata)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Create opens the draft from the published record.
func (d *Draft) Create(ctx context.Context) (*Draft, error) {
	err := d.Post(ctx, DraftMetadata)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Update replaces the draft with data, or with the held data when data is nil.
func (d *Draft) Update(ctx context.Context, data *Metadata) (*Draft, error) {
	if data == nil {
		data = d.data
	}

	if data == nil {
		return nil, ErrNoData
	}

	err := d.Put(ctx, DraftMetadata, WithBody(data))
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Delete discards the draft.
func (d *Draft) Delete(ctx context.Context) error {
	return d.Resource.Delete(ctx, nil)
}

// Publish publishes the draft and returns the resulting record.
func (d *Draft) Publish(ctx context.Context) (*Record, error) {
	record := &Record{Resource: d.child(recordEndpoint, nil)}

	err := d.Post(ctx, RecordMetadata, WithSuffix("/actions/publish"), WithTarget(record))
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ImportFiles links the files of the previous version into the draft.
func (d *Draft) ImportFiles(ctx context.Context) (*DraftFiles, error) {
	files := d.Files()

	err := d.Post(ctx, FilesListMetadata, WithSuffix("/actions/files-import"), WithTarget(files))
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Files returns the files of the draft.
func (d *Draft) Files() *DraftFiles {
	return &DraftFiles{Resource: d.child(draftFilesEndpoint, nil)}
}

func recordFactory(client *Client) HitFactory[*Record] {
	return func(hit *Metadata) *Record {
		return &Record{Resource: bindHit(client, recordEndpoint, hit)}
	}
}
