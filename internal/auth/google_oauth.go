package auth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/hitoshi/webpresence/internal/model"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewGoogleProvider はGoogle OAuth 2.0プロバイダーを生成する。
// スコープにはemail, profileを含む。
func NewGoogleProvider(cfg ProviderConfig) (OAuthProvider, error) {
	p, err := newOAuth2Provider(model.ProviderGoogle, cfg, endpoints.Google, defaultGoogleUserInfoURL,
		[]string{"openid", "email", "profile"}, parseGoogleUserInfo)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseGoogleUserInfo(body []byte) (*OAuthUserInfo, error) {
	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &OAuthUserInfo{
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}
