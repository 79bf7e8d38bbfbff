package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/apps/api/echo"
	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/staff"
	"github.com/trezcool/edudesk/tests"
)

func Test_studentApi_lookups(t *testing.T) {
	app := newApp(t)
	token := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/course-years", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "course years", path: "/v1/course-years", token: token, wantData: []byte(`["1st","2nd","3rd","4th"]`)},
		{name: "session years", path: "/v1/session-years", token: token, wantData: marchallObj(t, app.svcs.Academic.SessionYears())},
	})
}

func Test_studentApi_admit(t *testing.T) {
	app := newApp(t)
	counsellor := getToken(t, app, app.createStaff(t, "Cora", "cora", staff.RoleCounsellor))
	accountant := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))

	body := func(name, session string, lateral bool) []byte {
		return []byte(fmt.Sprintf(
			`{"name":%q,"isLateral":%t,"sessionYear":%q,"adminAmount":"5000","feesAmount":"45000","paymentMode":"One-Time"}`,
			name, lateral, session,
		))
	}

	tests := []httpTest{
		{name: "auth required", body: body("Ravi", "2023-2024", false), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "counsellor required", body: body("Ravi", "2023-2024", false), token: accountant,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "invalid data", body: body("", "2023-2024", false), token: counsellor, wantCode: http.StatusBadRequest},
		{name: "malformed session", body: body("Ravi", "2023", false), token: counsellor, wantCode: http.StatusBadRequest},
		{
			name: "future session", body: body("Ravi", "2025-2026", false), token: counsellor,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, ruleErr{Error: "session year 2025-2026 has not started yet", Kind: string(core.SessionOrderingError)}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/students"
	}
	runTests(t, app, tests)

	admitTests := []struct {
		name    string
		lateral bool
		want    academic.CourseYear
	}{
		{name: "regular entry", want: academic.FirstYear},
		{name: "lateral entry", lateral: true, want: academic.SecondYear},
	}
	for _, tt := range admitTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/students", counsellor, body("Ravi", "2023-2024", tt.lateral))
			rec = app.do(req, rec)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var resp echoapi.AdmissionResponse
			unmarchall(t, rec, &resp)
			assert.NotEmpty(t, resp.Student.ID)
			assert.Equal(t, tt.lateral, resp.Student.IsLateral)
			assert.Equal(t, resp.Student.ID, resp.Record.StudentID)
			assert.Equal(t, tt.want, resp.Record.CourseYear)
			assert.Equal(t, academic.SessionYear(2023), resp.Record.SessionYear)
		})
	}
}

func Test_studentApi_query(t *testing.T) {
	app := newApp(t)
	token := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))

	ravi, _ := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)
	asha, ashaRec := testutil.Admit(t, app.svcs.Academic, "Asha", true, 2023)

	tests := []httpTest{
		{name: "auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "search", path: "/v1/students?search=RAV", token: token, wantData: marchallObj(t, []academic.Student{ravi})},
		{name: "search (unknown)", path: "/v1/students?search=lol", token: token, wantData: []byte(`[]`)},
		{name: "lateral", path: "/v1/students?is_lateral=true", token: token, wantData: marchallObj(t, []academic.Student{asha})},
		{name: "ordering", path: "/v1/students?ordering=name", token: token, wantData: marchallObj(t, []academic.Student{asha, ravi})},
		{name: "retrieve", path: "/v1/students/" + ravi.ID, token: token, wantData: marchallObj(t, ravi)},
		{
			name: "retrieve (unknown)", path: "/v1/students/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: academic.ErrNotFound.Error()}),
		},
		{
			name: "academic details", path: "/v1/students/" + asha.ID + "/academic-details", token: token,
			wantData: marchallObj(t, []academic.AcademicRecord{ashaRec}),
		},
		{
			name: "academic details (unknown)", path: "/v1/students/lol/academic-details", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: academic.ErrNotFound.Error()}),
		},
	}
	runTests(t, app, tests)
}

func Test_studentApi_promote(t *testing.T) {
	app := newApp(t)
	counsellor := getToken(t, app, app.createStaff(t, "Cora", "cora", staff.RoleCounsellor))
	accountant := getToken(t, app, app.createStaff(t, "Carol", "carol", staff.RoleAccounts))

	ravi, raviRec := testutil.Admit(t, app.svcs.Academic, "Ravi", false, 2023)
	asha, ashaRec := testutil.Admit(t, app.svcs.Academic, "Asha", true, 2023)

	promote := func(currentID, year, session string, depromote, confirm bool) []byte {
		return []byte(fmt.Sprintf(
			`{"currentAcademicId":%q,"newCourseYear":%q,"newSessionYear":%q,"isDepromote":%t,"confirmLateralChange":%t,"adminAmount":"5000","feesAmount":"45000","paymentMode":"One-Time"}`,
			currentID, year, session, depromote, confirm,
		))
	}
	path := func(id string) string { return "/v1/students/" + id + "/promote" }
	rule := func(kind core.RuleKind, reason string) []byte {
		return marchallObj(t, ruleErr{Error: reason, Kind: string(kind)})
	}

	tests := []httpTest{
		{
			name: "auth required", path: path(ravi.ID), body: promote(raviRec.ID, "2nd", "2024-2025", false, false),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "counsellor required", path: path(ravi.ID), body: promote(raviRec.ID, "2nd", "2024-2025", false, false), token: accountant,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown student", path: path("lol"), body: promote(raviRec.ID, "2nd", "2024-2025", false, false), token: counsellor,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: academic.ErrNotFound.Error()}),
		},
		{
			name: "record of another student", path: path(ravi.ID), body: promote(ashaRec.ID, "3rd", "2024-2025", false, false), token: counsellor,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: academic.ErrRecordNotFound.Error()}),
		},
		{
			name: "invalid course year", path: path(ravi.ID), body: promote(raviRec.ID, "5th", "2024-2025", false, false), token: counsellor,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "skipping a year", path: path(ravi.ID), body: promote(raviRec.ID, "3rd", "2024-2025", false, false), token: counsellor,
			wantCode: http.StatusUnprocessableEntity, wantData: rule(core.SequencingError, "cannot skip intervening year(s): 2nd"),
		},
		{
			name: "same year", path: path(ravi.ID), body: promote(raviRec.ID, "1st", "2024-2025", false, false), token: counsellor,
			wantCode: http.StatusUnprocessableEntity, wantData: rule(core.SequencingError, "student is already enrolled in 1st year"),
		},
		{
			name: "lateral change not confirmed", path: path(asha.ID), body: promote(ashaRec.ID, "1st", "2023-2024", true, false), token: counsellor,
			wantCode: http.StatusUnprocessableEntity,
			wantData: rule(core.ConfirmationRequiredError, "student joined by lateral entry; confirm that the lateral entry flag will be cleared"),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
	}
	runTests(t, app, tests)

	t.Run("promoted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path(ravi.ID), counsellor, promote(raviRec.ID, "2nd", "2024-2025", false, false))
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res academic.PromoteResult
		unmarchall(t, rec, &res)
		assert.Equal(t, "promotion", res.Kind)
		assert.Equal(t, academic.SecondYear, res.Record.CourseYear)
		assert.Equal(t, academic.SessionYear(2024), res.Record.SessionYear)
		assert.False(t, res.ClearLateral)
	})

	t.Run("lateral entry demoted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path(asha.ID), counsellor, promote(ashaRec.ID, "1st", "2023-2024", true, true))
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res academic.PromoteResult
		unmarchall(t, rec, &res)
		assert.Equal(t, "demotion", res.Kind)
		assert.Equal(t, academic.FirstYear, res.Record.CourseYear)
		assert.Equal(t, academic.SessionYear(2023), res.Record.SessionYear)
		assert.True(t, res.ClearLateral)

		s, err := app.svcs.Academic.GetStudent(req.Context(), asha.ID)
		require.NoError(t, err)
		assert.False(t, s.IsLateral)
	})
}
