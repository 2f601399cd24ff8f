// Package mediadex provides an embedded Go client for the mediadex content
// matching and retrieval engine: it reconciles rich catalog metadata with raw
// media assets, enriches matched content with embeddings and smart tags, and
// serves semantic search over the enriched corpus.
//
//	client, _ := mediadex.New(
//	    mediadex.WithRedis("localhost:6379", ""),
//	    mediadex.WithEmbedding(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-small"),
//	    mediadex.WithMetadata(os.Getenv("TMDB_BEARER_TOKEN")),
//	    mediadex.WithAssetSearch("http://localhost:9200"),
//	)
//	defer client.Close()
//
//	match, _ := client.Reconcile(ctx, mediadex.Entry{Title: "Inception"}, mediadex.DriveMovies)
//	hits, _ := client.Query("mind-bending sci-fi").Drive(mediadex.DriveMovies).Limit(10).Do(ctx)
//
// Without an embedding key the client runs in keyword-only mode: retrieval
// falls back to lexical scoring and enrichment is unavailable.
package mediadex
