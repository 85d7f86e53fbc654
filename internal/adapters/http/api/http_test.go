package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/focusup/backend/internal/adapters/http/api"
	"github.com/focusup/backend/internal/adapters/realtime"
	service "github.com/focusup/backend/internal/app"
	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// newTestMux wires the full handler stack over an in-memory store.
func newTestMux(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()

	hub := realtime.NewHub()
	svc := service.New(service.WithNotifier(hub))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		svc.Stop()
		hub.Close()
	})

	mux := http.NewServeMux()
	api.NewServer(svc, svc, hub).Register(context.Background(), mux)
	return mux, svc
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func createUser(t *testing.T, mux *http.ServeMux, name, email string) model.User {
	t.Helper()
	w := doJSON(mux, "POST", "/api/users", fmt.Sprintf(`{"name":%q,"email":%q}`, name, email))
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status %d body %s", w.Code, w.Body.String())
	}
	var user model.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user
}

func submitScore(t *testing.T, mux *http.ServeMux, userID, game string, score, timeMs, accuracy float64) model.ScoreRecord {
	t.Helper()
	body := fmt.Sprintf(`{"userId":%q,"game":%q,"score":%v,"timeMs":%v,"accuracy":%v}`,
		userID, game, score, timeMs, accuracy)
	w := doJSON(mux, "POST", "/api/scores", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit score: status %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Score model.ScoreRecord `json:"score"`
		User  model.User        `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return resp.Score
}

func TestServerRegister(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newTestMux(t)

		Convey("Then the health endpoint serves metrics", func() {
			w := doJSON(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "focusup_scores")
		})

		Convey("And the stats endpoint serves JSON", func() {
			w := doJSON(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And unknown paths fall through to 404", func() {
			w := doJSON(mux, "GET", "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSubmitScoreEndpoint(t *testing.T) {
	Convey("Given a server with one registered user", t, func() {
		mux, _ := newTestMux(t)
		user := createUser(t, mux, "Alice", "alice@example.com")

		Convey("When submitting a valid score", func() {
			body := fmt.Sprintf(`{"userId":%q,"game":"memory","score":250,"timeMs":4000,"accuracy":90,"difficulty":"hard","metadata":{"deviceInfo":"firefox","ipAddress":"10.0.0.1"}}`, user.ID)
			w := doJSON(mux, "POST", "/api/scores", body)

			Convey("Then it is stored and the projection is returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var resp struct {
					Score model.ScoreRecord `json:"score"`
					User  model.User        `json:"user"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Score.ID, ShouldNotBeEmpty)
				So(resp.Score.Game, ShouldEqual, model.GameMemory)
				So(resp.Score.IsSuspicious, ShouldBeFalse)
				So(resp.Score.Metadata.DeviceInfo, ShouldEqual, "firefox")
				So(resp.User.Stats.TotalGamesPlayed, ShouldEqual, 1)
				So(resp.User.Stats.BestOverallScore, ShouldEqual, 250)
			})
		})

		Convey("When submitting malformed JSON", func() {
			w := doJSON(mux, "POST", "/api/scores", `{"userId":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When omitting the userId", func() {
			w := doJSON(mux, "POST", "/api/scores", `{"game":"memory","score":1,"timeMs":100}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When omitting the score or the elapsed time", func() {
			noScore := doJSON(mux, "POST", "/api/scores",
				fmt.Sprintf(`{"userId":%q,"game":"reaction","timeMs":200}`, user.ID))
			So(noScore.Code, ShouldEqual, http.StatusBadRequest)

			noTime := doJSON(mux, "POST", "/api/scores",
				fmt.Sprintf(`{"userId":%q,"game":"reaction","score":100}`, user.ID))
			So(noTime.Code, ShouldEqual, http.StatusBadRequest)

			Convey("Then nothing is persisted and the projection is untouched", func() {
				got := doJSON(mux, "GET", "/api/users/"+user.ID, "")
				So(got.Code, ShouldEqual, http.StatusOK)
				var fresh model.User
				So(json.Unmarshal(got.Body.Bytes(), &fresh), ShouldBeNil)
				So(fresh.Stats.TotalGamesPlayed, ShouldEqual, 0)
			})
		})

		Convey("When naming an unknown game", func() {
			body := fmt.Sprintf(`{"userId":%q,"game":"chess","score":1,"timeMs":100}`, user.ID)
			w := doJSON(mux, "POST", "/api/scores", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "unknown_game")
		})

		Convey("When the user does not exist", func() {
			w := doJSON(mux, "POST", "/api/scores", `{"userId":"ghost","game":"memory","score":1,"timeMs":100}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When accuracy is out of range", func() {
			body := fmt.Sprintf(`{"userId":%q,"game":"memory","score":1,"timeMs":100,"accuracy":101}`, user.ID)
			w := doJSON(mux, "POST", "/api/scores", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using the wrong method", func() {
			w := doJSON(mux, "GET", "/api/scores", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUserHistoryEndpoint(t *testing.T) {
	Convey("Given a user with attempts in two games", t, func() {
		mux, _ := newTestMux(t)
		user := createUser(t, mux, "Bob", "bob@example.com")
		submitScore(t, mux, user.ID, "memory", 100, 5000, 80)
		submitScore(t, mux, user.ID, "memory", 300, 4000, 90)
		submitScore(t, mux, user.ID, "reaction", 50, 230, 100)

		Convey("When fetching the full history", func() {
			w := doJSON(mux, "GET", "/api/scores/user/"+user.ID, "")

			Convey("Then records come back newest first with aggregates", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var h struct {
					Records   []model.ScoreRecord `json:"records"`
					Total     int                 `json:"total"`
					Aggregate struct {
						BestScore float64 `json:"bestScore"`
					} `json:"aggregate"`
					Games []model.Game `json:"games"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &h), ShouldBeNil)
				So(h.Total, ShouldEqual, 3)
				So(h.Records[0].Game, ShouldEqual, model.GameReaction)
				So(h.Aggregate.BestScore, ShouldEqual, 300)
				So(h.Games, ShouldResemble, []model.Game{model.GameMemory, model.GameReaction})
			})
		})

		Convey("When filtering by game", func() {
			w := doJSON(mux, "GET", "/api/scores/user/"+user.ID+"?game=memory", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var h struct {
				Total int `json:"total"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &h), ShouldBeNil)
			So(h.Total, ShouldEqual, 2)
		})

		Convey("When paging with a limit", func() {
			w := doJSON(mux, "GET", "/api/scores/user/"+user.ID+"?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var h struct {
				Records []model.ScoreRecord `json:"records"`
				Total   int                 `json:"total"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &h), ShouldBeNil)
			So(len(h.Records), ShouldEqual, 1)
			So(h.Total, ShouldEqual, 3)
		})

		Convey("When the limit is not a positive integer", func() {
			w := doJSON(mux, "GET", "/api/scores/user/"+user.ID+"?limit=abc", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the user does not exist", func() {
			w := doJSON(mux, "GET", "/api/scores/user/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingEndpoint(t *testing.T) {
	Convey("Given two users with reaction attempts", t, func() {
		mux, _ := newTestMux(t)
		alice := createUser(t, mux, "Alice", "alice@example.com")
		bob := createUser(t, mux, "Bob", "bob@example.com")
		submitScore(t, mux, alice.ID, "reaction", 500, 250, 100)
		submitScore(t, mux, bob.ID, "reaction", 500, 200, 100)

		Convey("When fetching the ranking", func() {
			w := doJSON(mux, "GET", "/api/scores/ranking?game=reaction", "")

			Convey("Then ties break on the faster time and profiles are joined", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Game      model.Game `json:"game"`
					Standings []struct {
						UserID string  `json:"userId"`
						Score  float64 `json:"score"`
						User   struct {
							Name string `json:"name"`
						} `json:"user"`
					} `json:"standings"`
					TotalPlayers int `json:"totalPlayers"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Game, ShouldEqual, model.GameReaction)
				So(len(resp.Standings), ShouldEqual, 2)
				So(resp.Standings[0].UserID, ShouldEqual, bob.ID)
				So(resp.Standings[0].User.Name, ShouldEqual, "Bob")
				So(resp.TotalPlayers, ShouldEqual, 2)
			})
		})

		Convey("When the game parameter is missing", func() {
			w := doJSON(mux, "GET", "/api/scores/ranking", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the game is unknown", func() {
			w := doJSON(mux, "GET", "/api/scores/ranking?game=chess", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is invalid", func() {
			w := doJSON(mux, "GET", "/api/scores/ranking?game=reaction&limit=zero", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestUsersEndpoint(t *testing.T) {
	Convey("Given a running server", t, func() {
		mux, _ := newTestMux(t)

		Convey("When registering a user", func() {
			w := doJSON(mux, "POST", "/api/users", `{"name":"Carol","email":"Carol@Example.com"}`)

			Convey("Then the email is normalized", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var user model.User
				So(json.Unmarshal(w.Body.Bytes(), &user), ShouldBeNil)
				So(user.ID, ShouldNotBeEmpty)
				So(user.Email, ShouldEqual, "carol@example.com")
			})

			Convey("And the duplicate email is rejected", func() {
				dup := doJSON(mux, "POST", "/api/users", `{"name":"Other","email":"carol@example.com"}`)
				So(dup.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And the profile endpoint returns it", func() {
				var user model.User
				So(json.Unmarshal(w.Body.Bytes(), &user), ShouldBeNil)
				got := doJSON(mux, "GET", "/api/users/"+user.ID, "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(got.Body.String(), ShouldContainSubstring, `"name":"Carol"`)
			})
		})

		Convey("When registration misses a field", func() {
			w := doJSON(mux, "POST", "/api/users", `{"name":"NoEmail"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When looking up an unknown user", func() {
			w := doJSON(mux, "GET", "/api/users/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUserProgressEndpoint(t *testing.T) {
	Convey("Given a user with recent attempts in two games", t, func() {
		mux, _ := newTestMux(t)
		user := createUser(t, mux, "Dave", "dave@example.com")
		submitScore(t, mux, user.ID, "attention", 100, 3000, 80)
		submitScore(t, mux, user.ID, "attention", 200, 3500, 90)
		submitScore(t, mux, user.ID, "memory", 400, 5000, 95)

		Convey("When fetching progress", func() {
			w := doJSON(mux, "GET", "/api/dashboard/user/"+user.ID+"/progress?days=7", "")

			Convey("Then today's bucket sums the attempts and the projection rides along", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					UserID string `json:"userId"`
					Days   []struct {
						TotalScore float64 `json:"totalScore"`
						Attempts   int     `json:"attempts"`
					} `json:"days"`
					Stats struct {
						TotalGamesPlayed int `json:"totalGamesPlayed"`
					} `json:"stats"`
					RecentScores []model.ScoreRecord `json:"recentScores"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.UserID, ShouldEqual, user.ID)
				So(len(resp.Days), ShouldEqual, 1)
				So(resp.Days[0].Attempts, ShouldEqual, 3)
				So(resp.Days[0].TotalScore, ShouldEqual, 700)
				So(resp.Stats.TotalGamesPlayed, ShouldEqual, 3)
				So(len(resp.RecentScores), ShouldEqual, 3)
				So(resp.RecentScores[0].Game, ShouldEqual, model.GameMemory)
			})
		})

		Convey("When filtering by game", func() {
			w := doJSON(mux, "GET", "/api/dashboard/user/"+user.ID+"/progress?game=attention", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp struct {
				Days []struct {
					Attempts int `json:"attempts"`
				} `json:"days"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(len(resp.Days), ShouldEqual, 1)
			So(resp.Days[0].Attempts, ShouldEqual, 2)
		})

		Convey("When the days parameter is invalid", func() {
			w := doJSON(mux, "GET", "/api/dashboard/user/"+user.ID+"/progress?days=-3", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the subresource is unknown", func() {
			w := doJSON(mux, "GET", "/api/users/"+user.ID+"/friends", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestDashboardEndpoints(t *testing.T) {
	Convey("Given a server with a flagged attempt", t, func() {
		mux, _ := newTestMux(t)
		user := createUser(t, mux, "Eve", "eve@example.com")
		clean := submitScore(t, mux, user.ID, "memory", 200, 4000, 90)
		// 30ms reaction trips the classifier threshold.
		flagged := submitScore(t, mux, user.ID, "reaction", 80, 30, 100)

		Convey("When fetching dashboard stats", func() {
			w := doJSON(mux, "GET", "/api/dashboard/stats", "")

			Convey("Then suspicious attempts count but stay out of recents", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var snap struct {
					TotalUsers      int `json:"totalUsers"`
					TotalScores     int `json:"totalScores"`
					SuspiciousCount int `json:"suspiciousCount"`
					RecentScores    []struct {
						ID   string `json:"id"`
						User struct {
							Name string `json:"name"`
						} `json:"user"`
					} `json:"recentScores"`
					TopPlayers []struct {
						UserID string `json:"userId"`
					} `json:"topPlayers"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.TotalUsers, ShouldEqual, 1)
				So(snap.TotalScores, ShouldEqual, 2)
				So(snap.SuspiciousCount, ShouldEqual, 1)
				So(len(snap.RecentScores), ShouldEqual, 1)
				So(snap.RecentScores[0].ID, ShouldEqual, clean.ID)
				So(snap.RecentScores[0].User.Name, ShouldEqual, "Eve")
				So(len(snap.TopPlayers), ShouldEqual, 1)
				So(snap.TopPlayers[0].UserID, ShouldEqual, user.ID)
			})
		})

		Convey("When listing suspicious scores", func() {
			w := doJSON(mux, "GET", "/api/dashboard/suspicious", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var list struct {
				Records    []model.ScoreRecord `json:"records"`
				Pagination struct {
					Total int `json:"total"`
					Page  int `json:"page"`
					Pages int `json:"pages"`
				} `json:"pagination"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list.Pagination.Total, ShouldEqual, 1)
			So(list.Pagination.Page, ShouldEqual, 1)
			So(list.Pagination.Pages, ShouldEqual, 1)
			So(list.Records[0].ID, ShouldEqual, flagged.ID)
		})

		Convey("When paging flagged attempts", func() {
			submitScore(t, mux, user.ID, "reaction", 70, 35, 100)
			submitScore(t, mux, user.ID, "reaction", 60, 40, 100)

			var first, second struct {
				Records    []model.ScoreRecord `json:"records"`
				Pagination struct {
					Page  int `json:"page"`
					Pages int `json:"pages"`
				} `json:"pagination"`
			}
			w1 := doJSON(mux, "GET", "/api/dashboard/suspicious?limit=2&page=1", "")
			So(w1.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w1.Body.Bytes(), &first), ShouldBeNil)
			w2 := doJSON(mux, "GET", "/api/dashboard/suspicious?limit=2&page=2", "")
			So(w2.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w2.Body.Bytes(), &second), ShouldBeNil)

			Convey("Then the second page holds the remaining record", func() {
				So(first.Records, ShouldHaveLength, 2)
				So(first.Pagination.Pages, ShouldEqual, 2)
				So(second.Pagination.Page, ShouldEqual, 2)
				So(second.Records, ShouldHaveLength, 1)
				So(second.Records[0].ID, ShouldNotEqual, first.Records[0].ID)
				So(second.Records[0].ID, ShouldNotEqual, first.Records[1].ID)
			})

			Convey("And the default limit advances pages the same way", func() {
				w := doJSON(mux, "GET", "/api/dashboard/suspicious?page=2", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var def struct {
					Records    []model.ScoreRecord `json:"records"`
					Pagination struct {
						Limit int `json:"limit"`
					} `json:"pagination"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &def), ShouldBeNil)
				So(def.Records, ShouldBeEmpty)
				So(def.Pagination.Limit, ShouldEqual, 50)
			})
		})

		Convey("When clearing the flag", func() {
			w := doJSON(mux, "PATCH", "/api/dashboard/suspicious/"+flagged.ID, `{"isSuspicious":false}`)

			Convey("Then the record is updated and leaves the queue", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rec model.ScoreRecord
				So(json.Unmarshal(w.Body.Bytes(), &rec), ShouldBeNil)
				So(rec.IsSuspicious, ShouldBeFalse)

				list := doJSON(mux, "GET", "/api/dashboard/suspicious", "")
				So(list.Body.String(), ShouldContainSubstring, `"total":0`)
			})
		})

		Convey("When toggling an unknown score", func() {
			w := doJSON(mux, "PATCH", "/api/dashboard/suspicious/ghost", `{"isSuspicious":true}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the moderation body is malformed", func() {
			w := doJSON(mux, "PATCH", "/api/dashboard/suspicious/"+flagged.ID, `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEventsEndpointValidation(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newTestMux(t)

		Convey("Then non-GET methods on the dashboard stream 404", func() {
			w := doJSON(mux, "POST", "/api/events/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And a user stream without an id is rejected", func() {
			w := doJSON(mux, "GET", "/api/events/user/", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
