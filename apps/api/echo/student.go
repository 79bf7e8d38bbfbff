package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/academic"
	"github.com/trezcool/edudesk/core/staff"
)

type AcademicService interface {
	Admit(ctx context.Context, ns academic.NewStudent) (academic.Student, academic.AcademicRecord, error)
	GetStudent(ctx context.Context, id string) (academic.Student, error)
	QueryStudents(ctx context.Context, filter *academic.QueryFilter, ordering []core.DBOrdering) ([]academic.Student, error)
	AcademicDetails(ctx context.Context, studentID string) ([]academic.AcademicRecord, error)
	Promote(ctx context.Context, req academic.PromoteRequest) (academic.PromoteResult, error)
	SessionYears() []academic.SessionYear
}

var _ AcademicService = (*academic.Service)(nil)

type studentApi struct {
	svc AcademicService
}

func registerStudentAPI(g *echo.Group, svc AcademicService) {
	api := studentApi{svc: svc}
	write := roleMiddleware(staff.RoleCounsellor)

	g.GET("/course-years", api.courseYears)
	g.GET("/session-years", api.sessionYears)

	sg := g.Group("/students")
	sg.POST("", api.admit, write)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/academic-details", api.academicDetails)
	sg.POST("/:id/promote", api.promote, write)
}

type AdmissionResponse struct {
	Student academic.Student        `json:"student"`
	Record  academic.AcademicRecord `json:"record"`
}

func (api *studentApi) courseYears(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, academic.CourseYears)
}

func (api *studentApi) sessionYears(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.SessionYears())
}

func (api *studentApi) admit(ctx echo.Context) error {
	var data academic.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	student, record, err := api.svc.Admit(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, AdmissionResponse{Student: student, Record: record})
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(academic.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []academic.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	student, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *studentApi) academicDetails(ctx echo.Context) error {
	records, err := api.svc.AcademicDetails(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if records == nil {
		records = []academic.AcademicRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *studentApi) promote(ctx echo.Context) error {
	var data academic.PromoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PromoteRequest")
	}
	data.StudentID = ctx.Param("id")

	result, err := api.svc.Promote(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}
