package conversion

// UserSnapshot 参照先ユーザーの埋め込みスナップショット
// ストレージがJOIN等で展開したユーザー情報を保持する
type UserSnapshot struct {
	UserID      string
	DisplayName string
}

// UserRef 変換レコードが保持するユーザー参照
// 生のIDと展開済みスナップショットのどちらの表現も取りうるため、
// 比較は必ずCanonicalID経由で行う
type UserRef struct {
	userID   string
	snapshot *UserSnapshot
}

// NewUserRef IDのみのユーザー参照を作成
func NewUserRef(userID string) UserRef {
	return UserRef{userID: userID}
}

// NewPopulatedUserRef 展開済みスナップショット付きのユーザー参照を作成
func NewPopulatedUserRef(snapshot *UserSnapshot) UserRef {
	return UserRef{snapshot: snapshot}
}

// CanonicalID 正規化されたユーザーIDを返す
// どちらの表現でも同一ユーザーなら同じ文字列になる
func (u UserRef) CanonicalID() string {
	if u.snapshot != nil {
		return u.snapshot.UserID
	}
	return u.userID
}

// IsPopulated スナップショットを保持しているかどうかを返す
func (u UserRef) IsPopulated() bool {
	return u.snapshot != nil
}

// Snapshot 埋め込みスナップショットを返す（未展開の場合はnil）
func (u UserRef) Snapshot() *UserSnapshot {
	return u.snapshot
}
