// Package qtext is a Go client for the qtext hybrid retrieval API.
//
// qtext retrieves candidates by dense vector, sparse vector and full-text
// search, merges them and ranks them with a configured pipeline.
//
//	client, _ := qtext.New("http://localhost:8080", qtext.WithAPIKey("secret"))
//	_ = client.AddNamespace(ctx, qtext.Namespace{Name: "document", VectorDim: 768})
//	_ = client.AddDoc(ctx, "document", qtext.Document{"id": 1, "text": "Python is fast"})
//	docs, _ := client.Query(ctx, qtext.Query{Namespace: "document", Query: "fast python"})
//
// QueryExplain returns per-modality results with timings and, for each
// ranked document, its position in every modality list.
package qtext
