package domain

import "sort"

// NeedTags - фиксированная таксономия потребностей в покрытии.
// Список выгружен из таксономии страховщика, порядок алфавитный.
var NeedTags = []string{
	"24hours_emergency_medical_assistance",
	"24hours_travel_assistance",
	"accidental_death_permanent_disablement",
	"accidental_loss_or_damage_to_rental_vehicle",
	"activities_covered",
	"actual_telephone_charges_requirement",
	"additional_travel_expenses",
	"adventurous_activities",
	"aerial_activity_exclusion",
	"against_doctor_advice",
	"against_travel_advisory",
	"age_eligibility",
	"arrival_delay",
	"articles_not_left_unattended",
	"assault_or_holdup_cash_benefit",
	"baggage_and_personal_effects",
	"baggage_delay",
	"baggage_delay_conditions",
	"baggage_personal_effects_excluded_items",
	"baggage_search_and_rescue",
	"bankruptcy_of_travel_agency",
	"beneficiary_designation",
	"burial_at_sea_or_local_cremation",
	"burst_pipe_damage_to_home",
	"cancelling_your_trip",
	"car_hire_excess",
	"cash_and_documents",
	"child_accompaniment_requirement",
	"child_guard",
	"claims_conditions_and_procedures",
	"compensations_for_loss_and_damaged_belongings",
	"consequential_loss_exclusion",
	"cosmetic_or_plastic_surgery_exclusion",
	"cosmetic_procedures_not_due_to_accident",
	"cost_of_repair_for_damaged_baggage",
	"covid_19_travel_inconvenience",
	"covid_and_pandemic_exclusions",
	"cruise_cover",
	"cruise_cover_conditions",
	"curtailment",
	"curtailment_conditions",
	"cyber_exclusion",
	"dangerous_activities_exclusion",
	"dental_treatment_exclusion",
	"dental_treatment_for_injury_during_journey",
	"dental_treatment_upon_return",
	"destination_not_to_or_via_country_in_state_of_war",
	"disruption_of_journey",
	"disruption_of_journey_conditions",
	"domestic_pets_care",
	"driver_must_be_one_of_insured_persons",
	"drug_and_alcohol_exclusion",
	"emergency_baggage",
	"emergency_medical_evacuation",
	"emergency_medical_evacuation_conditions",
	"emergency_medical_expenses",
	"emergency_medical_expenses_conditions",
	"emergency_medical_repatriation",
	"emergency_medical_repatriation_conditions",
	"emergency_mobile_phone_charges",
	"emergency_reunion",
	"emergency_travel_expenses_for_family_member",
	"excess_deductible_conditions",
	"excess_luggage_charges",
	"excluded_areas",
	"excluded_occupations",
	"exclusions_on_high_value_items",
	"expenses_to_return_minor_children",
	"extended_stay_due_to_quarantine",
	"family_member_visitation",
	"family_member_visitation_conditions",
	"follow_up_medical_treatment",
	"follow_up_medical_treatment_conditions",
	"fraudulent_credit_card",
	"funeral_expenses_overseas",
	"funeral_expenses_overseas_conditions",
	"good_health",
	"hijack_extension",
	"hijack_extension_conditions",
	"home_contents_while_abroad",
	"hospital_cash",
	"hospital_cash_conditions",
	"hospital_income_abroad",
	"hotel_overbooking_or_misconnection",
	"illegal_or_wilful_act_exclusion",
	"increased_cost_of_living_due_to_travel_delay",
	"incurred_expenses_due_to_lost_travel_documents",
	"loss_of_deposit_or_full_payment",
	"loss_of_deposit_or_full_payment_conditions",
	"loss_of_employment_benefit",
	"loss_of_frequent_flyer_points",
	"loss_of_frequent_flyer_points_conditions",
	"loss_of_home_contents",
	"loss_of_or_damage_to_travel_documents",
	"loss_of_personal_money",
	"loss_of_travel_documents_and_passport",
	"losses_due_to_transport_delay",
	"luggage_and_personal_effects_exclusions",
	"malicious_unlawful_acts",
	"medical_advice_and_treatment_restriction",
	"medical_expenses_overseas",
	"medical_expenses_overseas_conditions",
	"medical_inconvenience_benefit",
	"medical_inconvenience_benefit_conditions",
	"medical_treatment_exclusion",
	"mental_health_exclusions",
	"missed_connection",
	"missed_connection_conditions",
	"natural_disasters_and_catastrophes",
	"non_hospital_treatment",
	"non_medical_incident_exclusion",
	"non_resident_exclusion",
	"overbooked_flight_compensation",
	"passport_and_travel_documents",
	"passport_and_travel_documents_conditions",
	"personal_accident",
	"personal_accident_conditions",
	"personal_belongings",
	"personal_data_protection",
	"personal_liability_conditions",
	"personal_liability_exclusion",
	"personal_liability_to_third_parties",
	"personal_money",
	"personal_property_exclusion",
	"personal_security",
	"pet_care",
	"policy_territorial_limits",
	"post_journey_medical_expenses",
	"pre_existing_conditions",
	"pre_trip_purchased",
	"pregnancy_related_conditions",
	"professional_sports_exclusion",
	"property_cyber_data_exclusion",
	"prudence_and_precaution_requirement",
	"purchase_before_departure",
	"quarantine_allowance",
	"quarantine_allowance_conditions",
	"racing_activities",
	"radioactive_and_weapon_exclusion",
	"rental_vehicle_excess",
	"rental_vehicle_excess_conditions",
	"replacement_of_traveller",
	"resumption_of_journey",
	"resumption_of_journey_conditions",
	"return_of_mortal_remains",
	"search_and_rescue_expenses",
	"selfharm_exclusion",
	"ski_or_snow_sports_equipment",
	"sports_equipment",
	"sports_equipment_conditions",
	"terrorism_extension",
	"third_party_liability",
	"ticket_protection",
	"ticket_protection_conditions",
	"travel_advisory_exclusion",
	"travel_delay",
	"travel_delay_conditions",
	"travel_disruption",
	"travel_disruption_conditions",
	"travel_misconnection",
	"travel_misconnection_conditions",
	"trip_cancellation",
	"trip_cancellation_conditions",
	"trip_curtailement",
	"trip_curtailement_conditions",
	"trip_postponement",
	"trip_postponement_conditions",
	"trip_start_singapore",
	"unattended_vehicles_exclusion",
	"unused_entertainment_ticket",
	"unutilised_entertainment",
	"vaccination_and_medication_requirement",
	"valuables_handling_requirements",
	"war_and_terrorism_exclusion",
	"water_sports_exclusion",
	"work_at_heights_exclusion",
	"worsening_of_pre_existing_condition_before_trip",
	"written_proof_requirement",
	"wrongful_arrest_during_journey_overseas",
	"wrongly_held_by_criminal_during_journey",
}

var needTagSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(NeedTags))
	for _, t := range NeedTags {
		m[t] = struct{}{}
	}
	return m
}()

func IsNeedTag(tag string) bool {
	_, ok := needTagSet[tag]
	return ok
}

// NewNeeds возвращает карту потребностей со всеми тегами в false
func NewNeeds() map[string]bool {
	m := make(map[string]bool, len(NeedTags))
	for _, t := range NeedTags {
		m[t] = false
	}
	return m
}

// NormalizeNeeds дополняет карту недостающими тегами (false) и выкидывает
// теги вне таксономии. Возвращает новую карту.
func NormalizeNeeds(needs map[string]bool) map[string]bool {
	out := NewNeeds()
	for tag, v := range needs {
		if _, ok := out[tag]; ok && v {
			out[tag] = true
		}
	}
	return out
}

// ActiveNeeds - отсортированный список тегов со значением true
func ActiveNeeds(needs map[string]bool) []string {
	var tags []string
	for tag, v := range needs {
		if v {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
