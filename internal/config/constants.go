package config

import "time"

// Session defaults.
const (
	DefaultInterval = 3 * time.Second
	MinInterval     = time.Second
	DefaultReply    = "2"
	DefaultLanguage = "chi_sim"
)

// Dedup policy names.
const (
	DedupUnbounded = "unbounded"
	DedupSize      = "size"
	DedupWindow    = "window"
)

// DefaultKeywords is the stock city list.
var DefaultKeywords = []string{
	"天津", "重庆", "北京", "杭州", "烟台", "郑州", "沈阳", "温州",
	"南昌", "深圳", "广州", "太原", "福州", "南宁", "呼和浩特",
	"上海", "长春", "西安", "大连", "石家庄", "青岛",
}
