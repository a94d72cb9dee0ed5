package restclient

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/dispatch"
	"github.com/AmmannChristian/go-restauth/querycodec"
)

// Page selects a window of a collection. Zero fields leave the server default;
// any other value is clamped into the resource's bounds.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) params(offsetBounds querycodec.Bounds) querycodec.Params {
	params := querycodec.Params{}
	if p.Limit != 0 {
		params["limit"] = querycodec.LimitBounds.Apply(p.Limit)
	}
	if p.Offset != 0 {
		params["offset"] = offsetBounds.Apply(p.Offset)
	}
	return params
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func idQuery(ids []string, maxCount int) (querycodec.Params, error) {
	joined, err := querycodec.JoinIDs(ids, ",", maxCount)
	if err != nil {
		return nil, err
	}
	return querycodec.Params{"ids": joined}, nil
}

// GetAlbum fetches one album.
func (c *Client) GetAlbum(ctx context.Context, id, market string) (*dispatch.Result, error) {
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource: "albums",
		ID:       id,
		Query:    querycodec.Params{"market": optional(market)},
	})
}

// GetAlbums fetches up to 20 albums.
func (c *Client) GetAlbums(ctx context.Context, ids []string, market string) (*dispatch.Result, error) {
	query, err := idQuery(ids, querycodec.MaxIDs20)
	if err != nil {
		return nil, err
	}
	query["market"] = optional(market)

	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "albums", ID: dispatch.NoID, Query: query})
}

// GetAlbumTracks fetches the tracks of an album.
func (c *Client) GetAlbumTracks(ctx context.Context, id, market string, page Page) (*dispatch.Result, error) {
	query := page.params(querycodec.OffsetBounds)
	query["market"] = optional(market)

	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "albums", ID: id + "/tracks", Query: query})
}

// GetNewReleases fetches new album releases, optionally for one country.
func (c *Client) GetNewReleases(ctx context.Context, country string, page Page) (*dispatch.Result, error) {
	query := page.params(querycodec.OffsetBounds)
	query["country"] = optional(country)

	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "browse/new-releases", Query: query})
}

// GetArtist fetches one artist.
func (c *Client) GetArtist(ctx context.Context, id string) (*dispatch.Result, error) {
	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "artists", ID: id})
}

// GetArtists fetches up to 50 artists.
func (c *Client) GetArtists(ctx context.Context, ids []string) (*dispatch.Result, error) {
	query, err := idQuery(ids, querycodec.MaxIDs50)
	if err != nil {
		return nil, err
	}
	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "artists", Query: query})
}

// GetArtistTopTracks fetches an artist's top tracks. The market defaults to US, the
// endpoint rejects requests without one.
func (c *Client) GetArtistTopTracks(ctx context.Context, id, market string) (*dispatch.Result, error) {
	if market == "" {
		market = "US"
	}
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource: "artists",
		ID:       id + "/top-tracks",
		Query:    querycodec.Params{"market": market},
	})
}

// SearchOptions configure Search.
type SearchOptions struct {
	// Query is the search text. Filters maps field filters (e.g. "artist") to values and
	// is appended to the query as "field:value" in key order.
	Query   string
	Filters map[string]string
	// Types defaults to album.
	Types  []string
	Market string
	Page   Page
	// IncludeExternalAudio marks externally hosted audio content as playable.
	IncludeExternalAudio bool
}

// Search queries the catalogue.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*dispatch.Result, error) {
	terms := make([]string, 0, 1+len(opts.Filters))
	if q := strings.TrimSpace(opts.Query); q != "" {
		terms = append(terms, q)
	}
	for _, key := range sortedKeys(opts.Filters) {
		terms = append(terms, key+":"+opts.Filters[key])
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: search query is empty", ErrInvalidArgument)
	}

	types := opts.Types
	if len(types) == 0 {
		types = []string{"album"}
	}
	lowered := make([]string, len(types))
	for i, t := range types {
		lowered[i] = strings.ToLower(t)
	}

	query := opts.Page.params(querycodec.OffsetBounds)
	query["q"] = strings.Join(terms, " ")
	query["type"] = lowered
	query["market"] = optional(opts.Market)
	if opts.IncludeExternalAudio {
		query["include_external"] = "audio"
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "search", ID: dispatch.NoID, Query: query})
}

// GetAudioFeatures fetches audio features for one track, or for up to 100 tracks.
func (c *Client) GetAudioFeatures(ctx context.Context, ids []string) (*dispatch.Result, error) {
	if len(ids) == 1 {
		return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "audio-features", ID: ids[0]})
	}

	query, err := idQuery(ids, querycodec.MaxIDs100)
	if err != nil {
		return nil, err
	}
	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "audio-features", Query: query})
}

// GetAvailableGenreSeeds lists the genres accepted as recommendation seeds.
func (c *Client) GetAvailableGenreSeeds(ctx context.Context) ([]string, error) {
	result, err := c.Dispatch(ctx, dispatch.RequestSpec{Resource: "recommendations/available-genre-seeds"})
	if err != nil {
		return nil, err
	}

	var genres []string
	for _, g := range result.Get("genres").Array() {
		genres = append(genres, g.String())
	}
	return genres, nil
}

// RecommendationOptions configure GetRecommendations.
type RecommendationOptions struct {
	SeedArtists []string
	SeedGenres  []string
	SeedTracks  []string
	Market      string
	Limit       int
	// Tunables holds track attribute targets such as "target_energy" or "min_tempo".
	// Keys other than min_, max_ or target_ followed by a known attribute are ignored.
	Tunables map[string]any
}

var tunableAttributes = map[string]struct{}{
	"acousticness":     {},
	"danceability":     {},
	"duration_ms":      {},
	"energy":           {},
	"instrumentalness": {},
	"key":              {},
	"liveness":         {},
	"loudness":         {},
	"mode":             {},
	"popularity":       {},
	"speechiness":      {},
	"tempo":            {},
	"time_signature":   {},
	"valence":          {},
}

func tunableParams(tunables map[string]any) querycodec.Params {
	params := querycodec.Params{}
	for key, value := range tunables {
		prefix, attribute, ok := strings.Cut(key, "_")
		if !ok {
			continue
		}
		if prefix != "min" && prefix != "max" && prefix != "target" {
			continue
		}
		if _, known := tunableAttributes[attribute]; known {
			params[key] = value
		}
	}
	return params
}

// GetRecommendations fetches track recommendations for up to five seeds in total.
// Genre seeds are checked against GetAvailableGenreSeeds first.
func (c *Client) GetRecommendations(ctx context.Context, opts RecommendationOptions) (*dispatch.Result, error) {
	total := len(opts.SeedArtists) + len(opts.SeedGenres) + len(opts.SeedTracks)
	if total == 0 {
		return nil, fmt.Errorf("%w: at least one seed is required", ErrInvalidArgument)
	}
	if total > querycodec.MaxSeeds {
		return nil, &querycodec.LimitExceededError{Count: total, Max: querycodec.MaxSeeds}
	}

	if len(opts.SeedGenres) > 0 {
		available, err := c.GetAvailableGenreSeeds(ctx)
		if err != nil {
			return nil, err
		}
		known := make(map[string]struct{}, len(available))
		for _, g := range available {
			known[g] = struct{}{}
		}
		for _, genre := range opts.SeedGenres {
			if _, ok := known[genre]; !ok {
				return nil, fmt.Errorf("%w: unavailable genre seed %q", ErrInvalidArgument, genre)
			}
		}
	}

	query := tunableParams(opts.Tunables)
	if len(opts.SeedArtists) > 0 {
		query["seed_artists"] = opts.SeedArtists
	}
	if len(opts.SeedGenres) > 0 {
		query["seed_genres"] = opts.SeedGenres
	}
	if len(opts.SeedTracks) > 0 {
		query["seed_tracks"] = opts.SeedTracks
	}
	query["market"] = optional(opts.Market)
	if opts.Limit > 0 {
		query["limit"] = querycodec.Clamp(opts.Limit, 1, 100, 20)
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{Resource: "recommendations", Query: query})
}

// GetSavedAlbums lists the albums in the user's library.
func (c *Client) GetSavedAlbums(ctx context.Context, market string, page Page) (*dispatch.Result, error) {
	query := page.params(querycodec.UserOffsetBounds)
	query["market"] = optional(market)

	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/albums",
		Query:          query,
		RequiredScopes: []string{authz.ScopeUserLibraryRead},
	})
}

// SaveAlbums adds up to 20 albums to the user's library.
func (c *Client) SaveAlbums(ctx context.Context, ids []string) (*dispatch.Result, error) {
	return c.libraryMutation(ctx, http.MethodPut, ids)
}

// RemoveSavedAlbums removes up to 20 albums from the user's library.
func (c *Client) RemoveSavedAlbums(ctx context.Context, ids []string) (*dispatch.Result, error) {
	return c.libraryMutation(ctx, http.MethodDelete, ids)
}

func (c *Client) libraryMutation(ctx context.Context, method string, ids []string) (*dispatch.Result, error) {
	query, err := idQuery(ids, querycodec.MaxIDs20)
	if err != nil {
		return nil, err
	}
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/albums",
		Method:         method,
		Query:          query,
		RequiredScopes: []string{authz.ScopeUserLibraryModify},
	})
}

// CheckSavedAlbums reports, per id, whether the album is in the user's library.
// A gated call returns nil.
func (c *Client) CheckSavedAlbums(ctx context.Context, ids []string) ([]bool, error) {
	query, err := idQuery(ids, querycodec.MaxIDs20)
	if err != nil {
		return nil, err
	}

	result, err := c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/albums/contains",
		Query:          query,
		RequiredScopes: []string{authz.ScopeUserLibraryRead},
	})
	if err != nil || result.Gated {
		return nil, err
	}

	values := result.JSON().Array()
	saved := make([]bool, len(values))
	for i, v := range values {
		saved[i] = v.Bool()
	}
	return saved, nil
}

// RecentlyPlayedOptions configure GetRecentlyPlayed. At most one of After and Before
// (Unix milliseconds) may be set.
type RecentlyPlayedOptions struct {
	Limit  int
	After  int64
	Before int64
}

// GetRecentlyPlayed lists the user's recently played tracks.
func (c *Client) GetRecentlyPlayed(ctx context.Context, opts RecentlyPlayedOptions) (*dispatch.Result, error) {
	if opts.After != 0 && opts.Before != 0 {
		return nil, fmt.Errorf("%w: after and before are mutually exclusive", ErrInvalidArgument)
	}

	query := querycodec.Params{}
	if opts.Limit != 0 {
		query["limit"] = querycodec.LimitBounds.Apply(opts.Limit)
	}
	if opts.After != 0 {
		query["after"] = opts.After
	}
	if opts.Before != 0 {
		query["before"] = opts.Before
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/player/recently-played",
		Query:          query,
		RequiredScopes: []string{authz.ScopeUserReadRecentlyPlayed},
	})
}

// SetVolume sets the playback volume in percent on the active or given device.
func (c *Client) SetVolume(ctx context.Context, percent int, deviceID string) (*dispatch.Result, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: volume %d outside 0..100", ErrInvalidArgument, percent)
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/player/volume",
		Method:         http.MethodPut,
		Query:          querycodec.Params{"volume_percent": percent, "device_id": optional(deviceID)},
		RequiredScopes: []string{authz.ScopeUserModifyPlaybackState},
	})
}

// PlaybackOptions configure StartPlayback. ContextURI and URIs are exclusive.
type PlaybackOptions struct {
	DeviceID   string
	ContextURI string
	URIs       []string
	PositionMS int
}

// StartPlayback starts or resumes playback.
func (c *Client) StartPlayback(ctx context.Context, opts PlaybackOptions) (*dispatch.Result, error) {
	if opts.ContextURI != "" && len(opts.URIs) > 0 {
		return nil, fmt.Errorf("%w: context uri and uris are mutually exclusive", ErrInvalidArgument)
	}
	if err := checkPlayableURIs(opts.URIs); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"context_uri": optional(opts.ContextURI),
	}
	if len(opts.URIs) > 0 {
		fields["uris"] = opts.URIs
	}
	if opts.PositionMS > 0 {
		fields["position_ms"] = opts.PositionMS
	}
	body, err := querycodec.JSONBody(fields)
	if err != nil {
		return nil, err
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/player/play",
		Method:         http.MethodPut,
		Query:          querycodec.Params{"device_id": optional(opts.DeviceID)},
		Body:           body,
		RequiredScopes: []string{authz.ScopeUserModifyPlaybackState},
	})
}

// AddToQueue appends a track or episode to the playback queue.
func (c *Client) AddToQueue(ctx context.Context, uri, deviceID string) (*dispatch.Result, error) {
	if err := checkPlayableURIs([]string{uri}); err != nil {
		return nil, err
	}

	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/player/queue",
		Method:         http.MethodPost,
		Query:          querycodec.Params{"uri": uri, "device_id": optional(deviceID)},
		RequiredScopes: []string{authz.ScopeUserModifyPlaybackState},
	})
}

// checkPlayableURIs accepts at most 100 track or episode URIs.
func checkPlayableURIs(uris []string) error {
	if len(uris) > querycodec.MaxIDs100 {
		return &querycodec.LimitExceededError{Count: len(uris), Max: querycodec.MaxIDs100}
	}
	for _, uri := range uris {
		if !strings.HasPrefix(uri, "spotify:track:") && !strings.HasPrefix(uri, "spotify:episode:") {
			return fmt.Errorf("%w: %q is not a track or episode uri", ErrInvalidArgument, uri)
		}
	}
	return nil
}

// GetCurrentUserProfile fetches the profile of the authorized user.
func (c *Client) GetCurrentUserProfile(ctx context.Context) (*dispatch.Result, error) {
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me",
		RequiredScopes: []string{authz.ScopeUserReadPrivate, authz.ScopeUserReadEmail},
	})
}

// GetPlaybackState fetches the user's current playback.
func (c *Client) GetPlaybackState(ctx context.Context, market string) (*dispatch.Result, error) {
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "me/player",
		Query:          querycodec.Params{"market": optional(market)},
		RequiredScopes: []string{authz.ScopeUserReadPlaybackState},
	})
}

// GetEpisode fetches one episode, including the user's resume point.
func (c *Client) GetEpisode(ctx context.Context, id, market string) (*dispatch.Result, error) {
	return c.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       "episodes",
		ID:             id,
		Query:          querycodec.Params{"market": optional(market)},
		RequiredScopes: []string{authz.ScopeUserReadPlaybackPosition},
	})
}
