package points

import (
	"errors"
	"time"
)

var (
	// ErrInvalidHistoryID 履歴IDが無効
	ErrInvalidHistoryID = errors.New("invalid history id")
	// ErrInvalidHistoryType 履歴タイプが無効
	ErrInvalidHistoryType = errors.New("invalid history type")
	// ErrZeroDelta 増減ゼロの履歴は記録できない
	ErrZeroDelta = errors.New("history delta must be non-zero")
)

// HistoryEntry ポイント増減の監査ログエントリ
// 追記のみ。更新・削除はしない。ユーザーごとの増減合計が残高と一致することが
// このサブシステム全体の正しさの核になる
type HistoryEntry struct {
	historyID   string
	userID      string
	entryType   HistoryType
	points      int64 // 符号付き増減値
	description string
	relatedID   string // 変換レコードへの非所有の逆参照
	createdAt   time.Time
}

// NewHistoryEntry 新しいHistoryEntryを作成
func NewHistoryEntry(
	historyID string,
	userID string,
	entryType HistoryType,
	points int64,
	description string,
	relatedID string,
) (*HistoryEntry, error) {
	if historyID == "" {
		return nil, ErrInvalidHistoryID
	}
	if !userIDRegex.MatchString(userID) {
		return nil, ErrInvalidUserID
	}
	if !entryType.Valid() {
		return nil, ErrInvalidHistoryType
	}
	if points == 0 {
		return nil, ErrZeroDelta
	}

	return &HistoryEntry{
		historyID:   historyID,
		userID:      userID,
		entryType:   entryType,
		points:      points,
		description: description,
		relatedID:   relatedID,
		createdAt:   time.Now(),
	}, nil
}

// Reconstruct 永続化されたレコードからHistoryEntryを復元
func Reconstruct(
	historyID string,
	userID string,
	entryType HistoryType,
	points int64,
	description string,
	relatedID string,
	createdAt time.Time,
) *HistoryEntry {
	return &HistoryEntry{
		historyID:   historyID,
		userID:      userID,
		entryType:   entryType,
		points:      points,
		description: description,
		relatedID:   relatedID,
		createdAt:   createdAt,
	}
}

// HistoryID 履歴IDを返す
func (h *HistoryEntry) HistoryID() string {
	return h.historyID
}

// UserID ユーザーIDを返す
func (h *HistoryEntry) UserID() string {
	return h.userID
}

// EntryType 履歴タイプを返す
func (h *HistoryEntry) EntryType() HistoryType {
	return h.entryType
}

// Points 符号付き増減値を返す
func (h *HistoryEntry) Points() int64 {
	return h.points
}

// Description 説明を返す
func (h *HistoryEntry) Description() string {
	return h.description
}

// RelatedID 関連する変換レコードのIDを返す（なければ空文字）
func (h *HistoryEntry) RelatedID() string {
	return h.relatedID
}

// CreatedAt 作成日時を返す
func (h *HistoryEntry) CreatedAt() time.Time {
	return h.createdAt
}

// MustNewHistoryEntry テスト用ヘルパー: NewHistoryEntryを呼び出し、エラーが発生した場合はpanicする
func MustNewHistoryEntry(
	historyID string,
	userID string,
	entryType HistoryType,
	points int64,
	description string,
	relatedID string,
) *HistoryEntry {
	h, err := NewHistoryEntry(historyID, userID, entryType, points, description, relatedID)
	if err != nil {
		panic(err)
	}
	return h
}
