// Command mockupstream serves canned responses for the three upstream
// services so the full pipeline can run offline:
//
//	/kma/getUltraSrtFcst          weather observations for any grid cell
//	/gemini/models/{model}        a bracketed title list
//	/tmdb/search/multi            one movie-kind result per query
//
// Point the service at it with:
//
//	KMA_BASE_URL=http://localhost:9090/kma \
//	GEMINI_BASE_URL=http://localhost:9090/gemini \
//	TMDB_BASE_URL=http://localhost:9090/tmdb \
//	KMA_SERVICE_KEY=mock GEMINI_API_KEY=mock TMDB_API_KEY=mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /kma/getUltraSrtFcst", handleWeather)
	mux.HandleFunc("POST /gemini/models/", handleGenerate)
	mux.HandleFunc("GET /tmdb/search/multi", handleSearch)

	log.Printf("mock upstream listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// handleWeather returns a fixed rainy-evening observation set echoing the
// requested slot and cell.
func handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	item := func(category, value string) map[string]any {
		return map[string]any{
			"baseDate":  q.Get("base_date"),
			"baseTime":  q.Get("base_time"),
			"category":  category,
			"fcstDate":  q.Get("base_date"),
			"fcstTime":  q.Get("base_time"),
			"fcstValue": value,
		}
	}
	items := []map[string]any{
		item("SKY", "4"),
		item("PTY", "1"),
		item("T1H", "16.0"),
		item("REH", "85"),
		item("WSD", "2.4"),
		item("RN1", "1.5"),
	}
	writeJSON(w, map[string]any{
		"response": map[string]any{
			"header": map[string]any{"resultCode": "00", "resultMsg": "NORMAL_SERVICE"},
			"body": map[string]any{
				"items":      map[string]any{"item": items},
				"totalCount": len(items),
			},
		},
	})
}

func handleGenerate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{
					"text": "[클래식(Classic), 조제 호랑이 그리고 물고기들, 미드나잇 인 파리(Midnight in Paris), 건축학개론, 라라랜드(La La Land)]",
				}},
			},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 120, "totalTokenCount": 180},
	})
}

// handleSearch fabricates a deterministic movie result per query so repeated
// runs resolve stably.
func handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	h := fnv.New32a()
	h.Write([]byte(query))
	id := int64(h.Sum32() % 100000)

	writeJSON(w, map[string]any{
		"results": []map[string]any{
			{
				"id":           id,
				"media_type":   "movie",
				"title":        query,
				"overview":     fmt.Sprintf("%s에 대한 목업 줄거리.", query),
				"release_date": "2016-12-07",
				"poster_path":  fmt.Sprintf("/mock-%d.jpg", id),
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort mock response
}
