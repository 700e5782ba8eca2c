// Package coverage считает рекомендованные суммы покрытия по истории выплат
// и выбирает план, под который подбирается оферта страховщика.
package coverage

import (
	"sort"
	"strings"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

type Category string

const (
	CategoryAdventure Category = "adventure"
	CategoryCruise    Category = "cruise"
	CategoryFamily    Category = "family"
	CategoryStandard  Category = "standard"
)

type Plan string

const (
	PlanBasic         Plan = "A"
	PlanStandard      Plan = "B"
	PlanComprehensive Plan = "C"
)

// Plans - порядок от дешевого к полному, он же порядок при равных баллах
var Plans = []Plan{PlanBasic, PlanStandard, PlanComprehensive}

func (p Plan) String() string { return string(p) }

// средние выплаты по категориям поездок
type claims struct {
	medical    int
	evacuation int
	equipment  int
}

var claimsByCategory = map[Category]claims{
	CategoryAdventure: {medical: 50000, evacuation: 25000, equipment: 3000},
	CategoryStandard:  {medical: 15000, evacuation: 10000, equipment: 1000},
	CategoryCruise:    {medical: 20000, evacuation: 15000, equipment: 2000},
	CategoryFamily:    {medical: 30000, evacuation: 18000, equipment: 1500},
}

const (
	// запас 20% сверх средней выплаты, считаем в десятых долях
	bufferTenths     = 12
	baseCancellation = 50000
)

// Amounts - рекомендованные суммы покрытия
type Amounts struct {
	Category            Category
	Travelers           int
	MedicalExpenses     int
	EmergencyEvacuation int
	PersonalEffects     int
	TripCancellation    int
}

// CategoryOf - приключения важнее круиза, круиз важнее семьи
func CategoryOf(p *domain.TripProfile) Category {
	switch {
	case hasNeed(p.Needs, "adventurous"):
		return CategoryAdventure
	case hasNeed(p.Needs, "cruise"):
		return CategoryCruise
	case p.ChildrenCount != nil && *p.ChildrenCount > 0:
		return CategoryFamily
	default:
		return CategoryStandard
	}
}

// Recommend - суммы по категории: медицина и багаж на каждого путешественника,
// для годового полиса медицина в полтора раза больше
func Recommend(p *domain.TripProfile) Amounts {
	cat := CategoryOf(p)
	c := claimsByCategory[cat]
	n := travelers(p)

	a := Amounts{
		Category:            cat,
		Travelers:           n,
		MedicalExpenses:     c.medical * bufferTenths / 10 * n,
		EmergencyEvacuation: c.evacuation * bufferTenths / 10,
		PersonalEffects:     c.equipment * bufferTenths / 10 * n,
		TripCancellation:    baseCancellation * bufferTenths / 10,
	}
	if p.TripType == domain.TripAnnual {
		a.MedicalExpenses = a.MedicalExpenses * 3 / 2
	}
	return a
}

// Choice - выбранный план и баллы всех планов
type Choice struct {
	Plan    Plan
	Scores  map[Plan]int
	Reasons []string
}

// SelectPlan оценивает планы по числу потребностей, приключениям и круизу,
// нужной медицинской сумме и размеру семьи
func SelectPlan(p *domain.TripProfile, a Amounts) Choice {
	needs := len(domain.ActiveNeeds(p.Needs))
	adventure := hasNeed(p.Needs, "adventurous")
	cruise := hasNeed(p.Needs, "cruise")
	medical := a.MedicalExpenses

	scores := map[Plan]int{PlanBasic: 0, PlanStandard: 0, PlanComprehensive: 0}

	if needs < 10 && medical < 20000 {
		scores[PlanBasic] = 100
	}

	if needs > 5 && needs < 15 && medical > 10000 && medical < 50000 {
		scores[PlanStandard] = 100
	} else if !adventure && !cruise {
		scores[PlanStandard] = 80
	}

	if needs > 10 || adventure || cruise || medical > 30000 {
		scores[PlanComprehensive] = 100
	} else if needs > 8 {
		scores[PlanComprehensive] = 70
	}

	if a.Travelers > 2 {
		scores[PlanComprehensive] += 20
	}

	best := PlanBasic
	for _, plan := range Plans {
		if scores[plan] > scores[best] {
			best = plan
		}
	}

	var reasons []string
	if adventure {
		reasons = append(reasons, "adventure activities need comprehensive cover")
	}
	if cruise {
		reasons = append(reasons, "cruise travel needs specialised cover")
	}
	if medical > 30000 {
		reasons = append(reasons, "high medical cover recommended")
	}
	if a.Travelers > 2 {
		reasons = append(reasons, "family travel needs broader protection")
	}
	if needs > 10 {
		reasons = append(reasons, "many coverage needs identified")
	}

	return Choice{Plan: best, Scores: scores, Reasons: reasons}
}

// Advise - суммы и план одной записью, так они и сохраняются в котировке
func Advise(p *domain.TripProfile) *domain.Recommendation {
	a := Recommend(p)
	c := SelectPlan(p, a)
	return &domain.Recommendation{
		Category:            string(a.Category),
		Plan:                c.Plan.String(),
		MedicalExpenses:     a.MedicalExpenses,
		EmergencyEvacuation: a.EmergencyEvacuation,
		PersonalEffects:     a.PersonalEffects,
		TripCancellation:    a.TripCancellation,
		Reasons:             c.Reasons,
	}
}

// PickOffer - индекс оферты для плана: офферы ранжируются по цене,
// базовый берет самую дешевую, полный самую дорогую, стандартный середину
func PickOffer(plan Plan, prices []float64) int {
	n := len(prices)
	if n == 0 {
		return -1
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return prices[idx[i]] < prices[idx[j]] })

	switch plan {
	case PlanComprehensive:
		return idx[n-1]
	case PlanStandard:
		return idx[n/2]
	default:
		return idx[0]
	}
}

func hasNeed(needs map[string]bool, part string) bool {
	for tag, v := range needs {
		if v && strings.Contains(tag, part) {
			return true
		}
	}
	return false
}

// без счетчиков считаем одного взрослого
func travelers(p *domain.TripProfile) int {
	if p.AdultsCount == nil && p.ChildrenCount == nil {
		return 1
	}
	if n := p.TravelerCount(); n > 0 {
		return n
	}
	return 1
}
