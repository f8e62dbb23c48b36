// Package places は地図APIの場所検索（オートコンプリートと詳細取得）を提供する。
// APIキーをクライアントに渡さないよう、サーバー側で地図APIを呼び出す。
package places

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/hitoshi/brewlog/internal/model"
)

// DefaultBaseURL は地図APIのベースURL。
const DefaultBaseURL = "https://maps.googleapis.com"

// 地図APIのstatus値
const (
	statusNotFound       = "NOT_FOUND"
	statusInvalidRequest = "INVALID_REQUEST"
)

// cafeType はオートコンプリートをカフェに絞り込むtypes値。
const cafeType maps.AutocompletePlaceType = "cafe"

// detailFields は詳細取得で要求するフィールド。
var detailFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskPlaceID,
	maps.PlaceDetailsFieldMaskName,
	maps.PlaceDetailsFieldMaskFormattedAddress,
	maps.PlaceDetailsFieldMaskAddressComponent,
	maps.PlaceDetailsFieldMaskGeometryLocation,
	maps.PlaceDetailsFieldMaskPhotos,
}

// Prediction はオートコンプリートの候補。
type Prediction struct {
	PlaceID       string
	Description   string
	MainText      string
	SecondaryText string
}

// Client は地図APIのクライアント。
type Client struct {
	maps    *maps.Client
	initErr error
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使う。apiKeyが空の場合、各メソッドはMAPS_NOT_CONFIGUREDを返す。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
	if !c.Enabled() {
		return c
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithBaseURL(c.baseURL),
	}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}
	c.maps, c.initErr = maps.NewClient(opts...)
	if c.initErr != nil {
		logger.Error("failed to create maps client", slog.String("error", c.redact(c.initErr)))
	}
	return c
}

// Enabled はAPIキーが設定されているかを返す。
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Autocomplete は入力文字列に一致するカフェの候補を返す。候補がない場合は空スライスを返す。
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	if !c.Enabled() {
		return nil, model.NewMapsNotConfiguredError()
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, model.NewValidationError("input is required")
	}

	if c.initErr != nil {
		return nil, model.NewUpstreamError("place search")
	}

	resp, err := c.maps.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input: input,
		Types: cafeType,
	})
	if err != nil {
		c.logger.Error("places autocomplete failed", slog.String("error", c.redact(err)))
		return nil, model.NewUpstreamError("place search")
	}

	predictions := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		predictions = append(predictions, Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return predictions, nil
}

// Details はplace_idの場所情報を返す。
// 場所が見つからない場合はPLACE_NOT_FOUNDになる。
func (c *Client) Details(ctx context.Context, placeID string) (*model.PlaceFields, error) {
	if !c.Enabled() {
		return nil, model.NewMapsNotConfiguredError()
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, model.NewValidationError("place_id is required")
	}

	if c.initErr != nil {
		return nil, model.NewUpstreamError("place search")
	}

	r, err := c.maps.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  detailFields,
	})
	if err != nil {
		switch mapsStatus(err) {
		case statusNotFound, statusInvalidRequest:
			return nil, model.NewPlaceNotFoundError()
		}
		c.logger.Error("places details failed",
			slog.String("place_id", placeID),
			slog.String("error", c.redact(err)),
		)
		return nil, model.NewUpstreamError("place search")
	}
	// ZERO_RESULTSはエラーにならず空の結果が返る
	if r.PlaceID == "" && r.Name == "" {
		return nil, model.NewPlaceNotFoundError()
	}

	place := &model.PlaceFields{
		Name:    r.Name,
		PlaceID: &placeID,
	}
	if r.PlaceID != "" {
		place.PlaceID = &r.PlaceID
	}
	if r.FormattedAddress != "" {
		place.Address = &r.FormattedAddress
	}

	// localityを優先し、なければsublocality_level_1を使う
	var city string
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			if t == "locality" {
				city = comp.LongName
			} else if t == "sublocality_level_1" && city == "" {
				city = comp.LongName
			}
		}
	}
	if city != "" {
		place.City = &city
	}

	if loc := r.Geometry.Location; loc != (maps.LatLng{}) {
		lat, lng := loc.Lat, loc.Lng
		place.Lat = &lat
		place.Lng = &lng
	}
	if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
		ref := r.Photos[0].PhotoReference
		place.PhotoReference = &ref
	}
	return place, nil
}

// mapsStatus は地図APIクライアントのエラー（"maps: STATUS - message"）からstatus値を取り出す。
func mapsStatus(err error) string {
	msg, ok := strings.CutPrefix(err.Error(), "maps: ")
	if !ok {
		return ""
	}
	status, _, _ := strings.Cut(msg, " ")
	return status
}

// redact はログ出力用にエラーからAPIキーを取り除く。
// *url.Errorの場合はURLにAPIキーが含まれるため内側のエラーだけを使う。
func (c *Client) redact(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	msg := err.Error()
	if c.apiKey != "" {
		msg = strings.ReplaceAll(msg, c.apiKey, "[REDACTED]")
	}
	return msg
}
