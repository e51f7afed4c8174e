package api

import "github.com/mkorneva/ditakeeper/internal/index"

// RenameImagesRequest is the request body for the image rename operation.
type RenameImagesRequest struct {
	Prefix string `json:"prefix" example:"dl980" validate:"required"`
}

// CastTopicRequest is the request body for casting one topic.
type CastTopicRequest struct {
	Path string `json:"path" example:"c_Overview.dita" validate:"required"`
	Type string `json:"type" example:"task" validate:"required"`
}

// RootConceptRequest is the request body for creating a root concept.
type RootConceptRequest struct {
	Title string `json:"title" example:"How-to Guide"`
}

// TopicListResponse wraps topic listings.
type TopicListResponse struct {
	Topics []index.TopicRow `json:"topics" validate:"required"`
	Total  int              `json:"total" example:"42" validate:"required"`
}

// ProblemListResponse wraps review findings.
type ProblemListResponse struct {
	Problems []Problem `json:"problems" validate:"required"`
	Total    int       `json:"total" example:"3" validate:"required"`
}

// RenameTopicsResponse reports how many topics the rename pass moved.
type RenameTopicsResponse struct {
	Renamed int `json:"renamed" example:"7" validate:"required"`
}

// MassEditResponse lists the topics the mass edit touched.
type MassEditResponse struct {
	Processed []string `json:"processed" validate:"required"`
}

// OkResponse acknowledges an operation with no further payload.
type OkResponse struct {
	OK bool `json:"ok" example:"true" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the topic link graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}
