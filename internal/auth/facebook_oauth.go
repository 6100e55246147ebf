package auth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/hitoshi/webpresence/internal/model"
)

const defaultFacebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"

// facebookUserInfo はGraph APIの/meレスポンス。
// emailはユーザーが許可しなかった場合に欠落する。
type facebookUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewFacebookProvider はFacebook Loginプロバイダーを生成する。
func NewFacebookProvider(cfg ProviderConfig) (OAuthProvider, error) {
	p, err := newOAuth2Provider(model.ProviderFacebook, cfg, endpoints.Facebook, defaultFacebookUserInfoURL,
		[]string{"email", "public_profile"}, parseFacebookUserInfo)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseFacebookUserInfo(body []byte) (*OAuthUserInfo, error) {
	var info facebookUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &OAuthUserInfo{
		ProviderUserID: info.ID,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}
