package model

// Snapshot is the post-level preference state a content script reports to
// the popup. Thread-level sets are not part of it; the popup reads those
// from the shared store directly.
type Snapshot struct {
	HiddenPosts  []string       `json:"hiddenPosts"`
	LikedPosts   []string       `json:"likedPosts"`
	IgnoredUsers []string       `json:"ignoredUsers"`
	LightIgnored LightIgnoreMap `json:"lightIgnored"`
}

// Backup is the export/import document. Field names follow the files
// produced by earlier releases so old exports stay importable.
type Backup struct {
	ThreadsHidden    []string       `json:"threadsHidden"`
	ThreadsMarked    []string       `json:"threadsMarked"`
	PostsHidden      []string       `json:"postsHidden"`
	PostsInteresting []string       `json:"postsInteresting"`
	UsersIgnored     []string       `json:"usersIgnored"`
	LightIgnored     LightIgnoreMap `json:"lightIgnored"`
}

// Normalized returns a copy where every collection is non-nil, so the
// encoded document always carries every field.
func (b Backup) Normalized() Backup {
	return Backup{
		ThreadsHidden:    nonNil(b.ThreadsHidden),
		ThreadsMarked:    nonNil(b.ThreadsMarked),
		PostsHidden:      nonNil(b.PostsHidden),
		PostsInteresting: nonNil(b.PostsInteresting),
		UsersIgnored:     nonNil(b.UsersIgnored),
		LightIgnored:     nonNilMap(b.LightIgnored),
	}
}

// Normalized returns a copy where every collection is non-nil.
func (s Snapshot) Normalized() Snapshot {
	return Snapshot{
		HiddenPosts:  nonNil(s.HiddenPosts),
		LikedPosts:   nonNil(s.LikedPosts),
		IgnoredUsers: nonNil(s.IgnoredUsers),
		LightIgnored: nonNilMap(s.LightIgnored),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m LightIgnoreMap) LightIgnoreMap {
	if m == nil {
		return LightIgnoreMap{}
	}
	return m
}
