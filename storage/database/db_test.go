package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
)

func Test_connURL(t *testing.T) {
	conf := core.NewTestConfig().Database
	conf.Host, conf.Port = "db.kampus.test", "5433"
	conf.User, conf.Password = "kampus", "p@ss word"
	conf.AdminUser, conf.AdminPassword = "postgres", "root"

	tests := []struct {
		name     string
		admin    bool
		noTLS    bool
		wantUser string
		wantSSL  string
	}{
		{name: "app role", wantUser: "kampus", wantSSL: "require"},
		{name: "admin role", admin: true, wantUser: "postgres", wantSSL: "require"},
		{name: "without tls", noTLS: true, wantUser: "kampus", wantSSL: "disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := conf
			c.DisableTLS = tt.noTLS
			u, err := url.Parse(connURL(c, "kampus_test", tt.admin))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.kampus.test:5433", u.Host)
			assert.Equal(t, "/kampus_test", u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			assert.Equal(t, tt.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}

	t.Run("password is escaped", func(t *testing.T) {
		u, err := url.Parse(connURL(conf, "kampus", false))
		require.NoError(t, err)
		pw, _ := u.User.Password()
		assert.Equal(t, "p@ss word", pw)
	})
}
