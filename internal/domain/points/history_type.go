package points

import (
	"fmt"
)

// HistoryType ポイント増減の理由を表す値オブジェクト
type HistoryType string

const (
	HistoryTypeDailyCheckin        HistoryType = "daily_checkin"        // デイリーチェックイン
	HistoryTypeReferralBonus       HistoryType = "referral_bonus"       // 紹介ボーナス
	HistoryTypeQuestReward         HistoryType = "quest_reward"         // クエスト報酬
	HistoryTypeBonus               HistoryType = "bonus"                // ボーナス
	HistoryTypeDeduction           HistoryType = "deduction"            // 減算
	HistoryTypeConversionDeduction HistoryType = "conversion_deduction" // 変換による減算
	HistoryTypeConversionRefund    HistoryType = "conversion_refund"    // 却下による返金
)

// NewHistoryType 新しいHistoryTypeを作成
func NewHistoryType(s string) (HistoryType, error) {
	switch s {
	case "daily_checkin", "referral_bonus", "quest_reward", "bonus", "deduction", "conversion_deduction", "conversion_refund":
		return HistoryType(s), nil
	default:
		return "", fmt.Errorf("invalid history type: %s", s)
	}
}

// String 文字列表現を返す
func (ht HistoryType) String() string {
	return string(ht)
}

// Valid 有効な履歴タイプかどうかを返す
func (ht HistoryType) Valid() bool {
	switch ht {
	case HistoryTypeDailyCheckin, HistoryTypeReferralBonus, HistoryTypeQuestReward,
		HistoryTypeBonus, HistoryTypeDeduction, HistoryTypeConversionDeduction, HistoryTypeConversionRefund:
		return true
	default:
		return false
	}
}
