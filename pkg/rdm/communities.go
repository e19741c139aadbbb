package rdm

import (
	"context"
	"iter"
)

// Endpoint templates of the communities API.
const (
	communitiesEndpoint      = "/communities"
	communityEndpoint        = "/communities/{id}"
	communityRecordsEndpoint = "/communities/{id}/records"
)

// CommunityList is the /communities collection.
type CommunityList struct {
	Resource
}

// Get fetches the first page of communities.
func (l *CommunityList) Get(ctx context.Context) (*CommunityList, error) {
	err := l.Resource.Get(ctx, CommunityListMetadata)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Community returns the community with the given id or slug.
func (l *CommunityList) Community(id string) *Community {
	return &Community{Resource: l.child(communityEndpoint, Args{"id": id})}
}

// Create creates a community and returns it bound by its new id.
func (l *CommunityList) Create(ctx context.Context, data *Metadata) (*Community, error) {
	community := &Community{Resource: l.child(communityEndpoint, nil)}

	err := l.Post(ctx, CommunityMetadata, WithBody(data), WithTarget(community))
	if err != nil {
		return nil, err
	}

	return community, nil
}

// Search searches communities.
func (l *CommunityList) Search(ctx context.Context, params SearchParams) (*Pagination[*Community], error) {
	return paginate(ctx, &l.Resource, params.WithDefaults(), CommunityListMetadata, communityFactory(l.client))
}

// Entries walks the held page of communities without any request.
func (l *CommunityList) Entries() (iter.Seq[*Community], error) {
	return entries(&l.Resource, communityFactory(l.client))
}

// Iter fetches the first page of communities and walks it.
func (l *CommunityList) Iter(ctx context.Context) (iter.Seq[*Community], error) {
	_, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}

	return l.Entries()
}

// Community is a community at /communities/{id}.
type Community struct {
	Resource
}

// Get fetches the community.
func (c *Community) Get(ctx context.Context) (*Community, error) {
	err := c.Resource.Get(ctx, CommunityMetadata)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Update replaces the community with data, or with the held data when data
// is nil.
func (c *Community) Update(ctx context.Context, data *Metadata) (*Community, error) {
	if data == nil {
		data = c.data
	}

	if data == nil {
		return nil, ErrNoData
	}

	err := c.Put(ctx, CommunityMetadata, WithBody(data))
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Delete deletes the community.
func (c *Community) Delete(ctx context.Context) error {
	return c.Resource.Delete(ctx, nil)
}

// Records returns the records included in the community.
func (c *Community) Records() *CommunityRecords {
	return &CommunityRecords{Resource: c.child(communityRecordsEndpoint, nil)}
}

// CommunityRecords is the /communities/{id}/records association.
type CommunityRecords struct {
	Resource
}

// Get fetches the first page of records in the community.
func (r *CommunityRecords) Get(ctx context.Context) (*CommunityRecords, error) {
	err := r.Resource.Get(ctx, CommunityRecordListMetadata)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Add adds records to the community. input is a record id, a []string of
// ids, or metadata built with NormalizeCommunityRecords. The held data
// becomes the server's report of the operation.
func (r *CommunityRecords) Add(ctx context.Context, input interface{}) (*CommunityRecords, error) {
	body, err := NormalizeCommunityRecords(input)
	if err != nil {
		return nil, err
	}

	err = r.Post(ctx, CommunityRecordMetadata, WithBody(body))
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Search searches the records of the community.
func (r *CommunityRecords) Search(ctx context.Context, params SearchParams) (*Pagination[*Record], error) {
	return paginate(ctx, &r.Resource, params.WithDefaults(), CommunityRecordListMetadata, recordFactory(r.client))
}

// Entries walks the held page of records without any request.
func (r *CommunityRecords) Entries() (iter.Seq[*Record], error) {
	return entries(&r.Resource, recordFactory(r.client))
}

// Iter fetches the first page of records and walks it.
func (r *CommunityRecords) Iter(ctx context.Context) (iter.Seq[*Record], error) {
	_, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}

	return r.Entries()
}

func communityFactory(client *Client) HitFactory[*Community] {
	return func(hit *Metadata) *Community {
		return &Community{Resource: bindHit(client, communityEndpoint, hit)}
	}
}
