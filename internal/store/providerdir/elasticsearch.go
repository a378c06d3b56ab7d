package providerdir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/engine/matching"
	"beautymatch/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const defaultSearchSize = 500

// ElasticsearchDirectory serves deployments that index the stylist catalog
// in Elasticsearch. Geo narrowing uses a native geo_distance filter, so no
// post-filtering pass is needed here.
type ElasticsearchDirectory struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchDirectory(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchDirectory {
	return &ElasticsearchDirectory{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "provider-directory-es"}),
	}
}

// esStylist is the indexed document shape. Location is a geo_point.
type esStylist struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Location        geoPoint `json:"location"`
	Specialties     []string `json:"specialties"`
	PriceMin        float64  `json:"priceMin"`
	PriceMax        float64  `json:"priceMax"`
	ExperienceYears int      `json:"experienceYears"`
	IsVerified      bool     `json:"isVerified"`
	AverageRating   float64  `json:"averageRating"`
	Available       bool     `json:"available"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func buildDirectoryQuery(filter matching.DirectoryFilter) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"available": true}},
	}

	if filter.VerifiedOnly {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"isVerified": true},
		})
	}
	if len(filter.Specialties) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"specialties": filter.Specialties},
		})
	}
	if filter.NearTo != nil && filter.WithinKm > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%.1fkm", filter.WithinKm),
				"location": map[string]interface{}{
					"lat": filter.NearTo.Latitude,
					"lon": filter.NearTo.Longitude,
				},
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
		"size": defaultSearchSize,
	}
}

// ListAvailable runs the filtered search and maps hits onto the stylist
// model.
func (d *ElasticsearchDirectory) ListAvailable(ctx context.Context, filter matching.DirectoryFilter) ([]models.Stylist, error) {
	body, err := json.Marshal(buildDirectoryQuery(filter))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("stylist search encode", err)
	}

	res, err := d.client.Search(
		d.client.Search.WithContext(ctx),
		d.client.Search.WithIndex(d.index),
		d.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewQueryExecutionFailedError("stylist search",
			fmt.Errorf("elasticsearch: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source esStylist `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("stylist search decode", err)
	}

	stylists := make([]models.Stylist, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		stylists = append(stylists, models.Stylist{
			ID:   doc.ID,
			Name: doc.Name,
			Location: models.Coordinate{
				Latitude:  doc.Location.Lat,
				Longitude: doc.Location.Lon,
			},
			Specialties:     doc.Specialties,
			Price:           models.PriceRange{Min: doc.PriceMin, Max: doc.PriceMax},
			ExperienceYears: doc.ExperienceYears,
			IsVerified:      doc.IsVerified,
			AverageRating:   doc.AverageRating,
			Available:       doc.Available,
		})
	}

	d.logger.Debug("stylist snapshot loaded", map[string]interface{}{
		"count": len(stylists),
	})
	return stylists, nil
}
