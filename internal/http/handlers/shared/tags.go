package shared

// TagRequest 运单标签请求
type TagRequest struct {
	Name string `json:"name" binding:"required"`
}
