package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const weightScale = 3

// Weight 重量（千克），精确小数避免浮点边界误差
type Weight struct {
	decimal.Decimal
}

// NewWeight 从浮点数创建重量
func NewWeight(kg float64) Weight {
	return Weight{Decimal: decimal.NewFromFloat(kg)}
}

// ParseWeight 从字符串解析重量
func ParseWeight(raw string) (Weight, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Weight{}, err
	}
	return Weight{Decimal: d}, nil
}

// Rounded 按存储精度（3 位小数）舍入后的值
func (w Weight) Rounded() decimal.Decimal {
	return w.Decimal.Round(weightScale)
}

// MarshalJSON 输出数字
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.Rounded().String()), nil
}

// UnmarshalJSON 解析重量（字符串或数字），不做舍入
func (w *Weight) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		w.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	w.Decimal = d
	return nil
}

// Value 用于数据库写入
func (w Weight) Value() (driver.Value, error) {
	return w.Rounded().Value()
}

// Scan 用于数据库读取
func (w *Weight) Scan(value interface{}) error {
	return w.Decimal.Scan(value)
}

// String 返回千克数
func (w Weight) String() string {
	return w.Rounded().String()
}
